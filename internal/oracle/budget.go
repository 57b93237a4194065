package oracle

import (
	"context"
	"sync/atomic"
)

type budgetKey struct{}

// WithBudget caps the number of deliberations charged through the
// returned context at n. Contexts without a budget are unlimited.
func WithBudget(ctx context.Context, n int64) context.Context {
	c := &atomic.Int64{}
	c.Store(n)
	return context.WithValue(ctx, budgetKey{}, c)
}

// SpendBudget consumes one unit from ctx's budget. It reports false
// when the budget is exhausted. A context with no budget always
// reports true.
func SpendBudget(ctx context.Context) bool {
	c, ok := ctx.Value(budgetKey{}).(*atomic.Int64)
	if !ok {
		return true
	}
	for {
		cur := c.Load()
		if cur <= 0 {
			return false
		}
		if c.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// BudgetRemaining reports the units left, or -1 when unlimited.
func BudgetRemaining(ctx context.Context) int64 {
	c, ok := ctx.Value(budgetKey{}).(*atomic.Int64)
	if !ok {
		return -1
	}
	n := c.Load()
	if n < 0 {
		return 0
	}
	return n
}
