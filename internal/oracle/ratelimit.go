package oracle

import (
	"context"
	"time"
)

// rpsLimiter is a token bucket refilled at a fixed rate. A nil limiter
// admits everything.
type rpsLimiter struct {
	tokens chan struct{}
	stop   chan struct{}
}

func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stop:   make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Millisecond
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				select {
				case l.tokens <- struct{}{}:
				default:
				}
			case <-l.stop:
				return
			}
		}
	}()
	return l
}

func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	close(l.stop)
}
