package cognition

import "context"

// Runtime is the capability boundary the evaluator calls into at trigger
// points. Implementations must be fail-open: Deliberate never propagates
// provider failures, it degrades to Continue.
type Runtime interface {
	// Observe records an event. May be a no-op.
	Observe(e ObservationEvent)

	// Deliberate makes one blocking call to the decision source and
	// returns exactly one decision variant.
	Deliberate(ctx context.Context, t Trigger) Decision

	// CheckGoals re-evaluates active goals and returns zero or more
	// decisions, one per goal whose check currently fails.
	CheckGoals(ctx context.Context) []Decision

	// IsActive reports whether deliberation can do anything. The evaluator
	// guards every cognitive side path with this single branch.
	IsActive() bool
}

// NullRuntime disables cognition. Every method is an allocation-free
// no-op, so running with it is indistinguishable from a conventional
// interpreter.
type NullRuntime struct{}

func (NullRuntime) Observe(ObservationEvent)                    {}
func (NullRuntime) Deliberate(context.Context, Trigger) Decision { return Continue() }
func (NullRuntime) CheckGoals(context.Context) []Decision        { return nil }
func (NullRuntime) IsActive() bool                               { return false }

// Null is the shared inactive runtime.
var Null Runtime = NullRuntime{}
