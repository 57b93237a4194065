// Package cognition defines the model shared by the evaluator and the
// cognitive layer: observation events, deliberation triggers, the
// five-variant decision algebra, safety limits, the reasoning trace, and
// the runtime boundary with its null implementation.
package cognition

import (
	"encoding/json"

	"cogni/internal/value"
)

// EventKind tags an ObservationEvent variant.
type EventKind string

const (
	EventValueChanged EventKind = "value_changed"
	EventExpectation  EventKind = "expectation"
	EventFnReturn     EventKind = "function_return"
	EventCheckpoint   EventKind = "checkpoint"
)

// ObservationEvent is one buffered fact about execution. Exactly one
// variant is populated, per Kind.
type ObservationEvent struct {
	Kind EventKind
	Step int

	// value_changed
	Var string
	Old value.Value
	New value.Value

	// expectation
	Condition string
	Result    bool
	Message   string

	// function_return
	Fn  string
	Ret value.Value

	// checkpoint
	Checkpoint string
}

func ValueChanged(step int, name string, old, new value.Value) ObservationEvent {
	return ObservationEvent{Kind: EventValueChanged, Step: step, Var: name, Old: old, New: new}
}

func ExpectationEvaluated(step int, cond string, result bool, msg string) ObservationEvent {
	return ObservationEvent{Kind: EventExpectation, Step: step, Condition: cond, Result: result, Message: msg}
}

func FunctionReturned(step int, fn string, result value.Value) ObservationEvent {
	return ObservationEvent{Kind: EventFnReturn, Step: step, Fn: fn, Ret: result}
}

func CheckpointCreated(step int, name string) ObservationEvent {
	return ObservationEvent{Kind: EventCheckpoint, Step: step, Checkpoint: name}
}

// MarshalJSON renders only the fields of the active variant, keeping
// oracle payloads free of zero-value noise.
func (e ObservationEvent) MarshalJSON() ([]byte, error) {
	m := map[string]any{"kind": string(e.Kind), "step": e.Step}
	switch e.Kind {
	case EventValueChanged:
		m["var"] = e.Var
		m["old"] = value.ToJSON(e.Old)
		m["new"] = value.ToJSON(e.New)
	case EventExpectation:
		m["condition"] = e.Condition
		m["result"] = e.Result
		m["message"] = e.Message
	case EventFnReturn:
		m["fn"] = e.Fn
		m["value"] = value.ToJSON(e.Ret)
	case EventCheckpoint:
		m["checkpoint"] = e.Checkpoint
	}
	return json.Marshal(m)
}

// maxBuffered caps the observation buffer; the oldest events drop first.
// Checkpoint frequency makes unbounded growth easy to hit in loops.
const maxBuffered = 256

// Buffer accumulates observation events between deliberations in raise
// order. Not safe for concurrent use; the evaluator is single-threaded.
type Buffer struct {
	events []ObservationEvent
}

func (b *Buffer) Append(e ObservationEvent) {
	if len(b.events) >= maxBuffered {
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	b.events = append(b.events, e)
}

// Drain returns the buffered events in order and clears the buffer.
func (b *Buffer) Drain() []ObservationEvent {
	out := b.events
	b.events = nil
	return out
}

func (b *Buffer) Len() int { return len(b.events) }
