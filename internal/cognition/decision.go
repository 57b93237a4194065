package cognition

import (
	"fmt"
	"strings"

	"cogni/internal/value"
)

// DecisionKind tags a Decision variant.
type DecisionKind string

const (
	DecisionContinue  DecisionKind = "continue"
	DecisionOverride  DecisionKind = "override"
	DecisionFix       DecisionKind = "fix"
	DecisionBacktrack DecisionKind = "backtrack"
	DecisionHalt      DecisionKind = "halt"
)

// Adjustment is one (variable, value) override applied after a backtrack
// restore, in list order.
type Adjustment struct {
	Variable string
	Value    value.Value
}

// Decision is the outcome of one deliberation. Exactly one variant is
// active, per Kind; the other fields are zero.
type Decision struct {
	Kind DecisionKind

	// override
	Value value.Value

	// fix
	NewCode     string
	Explanation string

	// backtrack
	Checkpoint  string
	Adjustments []Adjustment

	// halt
	Err string
}

func Continue() Decision { return Decision{Kind: DecisionContinue} }

func Override(v value.Value) Decision { return Decision{Kind: DecisionOverride, Value: v} }

func Fix(newCode, explanation string) Decision {
	return Decision{Kind: DecisionFix, NewCode: newCode, Explanation: explanation}
}

func Backtrack(checkpoint string, adjustments []Adjustment) Decision {
	return Decision{Kind: DecisionBacktrack, Checkpoint: checkpoint, Adjustments: adjustments}
}

func Halt(msg string) Decision { return Decision{Kind: DecisionHalt, Err: msg} }

// String renders a short form for logs and traces.
func (d Decision) String() string {
	switch d.Kind {
	case DecisionContinue:
		return "continue"
	case DecisionOverride:
		return fmt.Sprintf("override(%s)", d.Value)
	case DecisionFix:
		return fmt.Sprintf("fix(%d lines)", countLines(d.NewCode))
	case DecisionBacktrack:
		names := make([]string, len(d.Adjustments))
		for i, a := range d.Adjustments {
			names[i] = a.Variable
		}
		return fmt.Sprintf("backtrack(%s, adjust=[%s])", d.Checkpoint, strings.Join(names, ","))
	case DecisionHalt:
		return fmt.Sprintf("halt(%s)", d.Err)
	default:
		return string(d.Kind)
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}

// Goal is a declared aspiration: a description the oracle must respect and
// an optional check expression, kept as source text at this layer.
type Goal struct {
	Description string `json:"description"`
	CheckSrc    string `json:"check,omitempty"`
}

// Trigger classifies why the oracle is being invoked.
type Trigger struct {
	Kind     TriggerKind `json:"kind"`
	Message  string      `json:"message,omitempty"`
	Position string      `json:"position,omitempty"`
	Goal     string      `json:"goal,omitempty"`      // goal_misalignment: violated description
	Question string      `json:"question,omitempty"`  // explicit_reason
}

// TriggerKind tags a Trigger variant.
type TriggerKind string

const (
	TriggerTechnicalError   TriggerKind = "technical_error"
	TriggerExpectFailed     TriggerKind = "expect_failed"
	TriggerGoalMisalignment TriggerKind = "goal_misalignment"
	TriggerExplicitReason   TriggerKind = "explicit_reason"
)

func (t Trigger) String() string {
	if t.Message != "" {
		return fmt.Sprintf("%s: %s", t.Kind, t.Message)
	}
	return string(t.Kind)
}
