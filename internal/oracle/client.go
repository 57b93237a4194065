// Package oracle holds the provider boundary of the cognitive layer: the
// client interface, vendor-backed and scripted implementations, retry and
// rate-limit middleware, the decision wire format, and the per-run
// consultation budget. Everything above this package speaks
// cognition.Decision; everything below speaks JSON.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidJSON marks a response that is not a valid decision document.
var ErrInvalidJSON = errors.New("oracle: invalid decision JSON")

// PermanentError wraps failures that retrying cannot cure (bad request,
// auth, quota exhausted). Middleware short-circuits on it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Client is a decision source. GenerateJSON sends the prompt and a
// JSON-encodable input and returns the raw response document; decoding and
// validation happen in DecodeDecision.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

// Middleware wraps a Client with additional behavior.
type Middleware func(next Client) Client

// Chain applies middlewares so the first listed is outermost.
func Chain(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
