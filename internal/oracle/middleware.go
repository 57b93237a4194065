package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Retry retries GenerateJSON up to maxAttempts with exponential backoff
// starting at baseDelay. Permanent errors are not retried; context
// cancellation stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.GenerateJSON(ctx, prompt, input)
		if err == nil {
			return resp, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return nil, last
}

// RateLimit throttles GenerateJSON to rps requests per second with the
// given burst. rps <= 0 disables the limiter.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &limited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type limited struct {
	next Client
	rl   *rpsLimiter
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Close() error {
	l.rl.Stop()
	return l.next.Close()
}

func (l *limited) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := l.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.next.GenerateJSON(ctx, prompt, input)
}
