package cognition

import (
	"errors"
	"fmt"
)

// ErrFixRejected marks a Fix that failed structural validation. Rejections
// are never surfaced to callers as run errors; the rejection reason lives
// in the reasoning trace only.
var ErrFixRejected = errors.New("fix rejected")

// GoalExtractor parses source and returns its goal declarations. Injected
// so the validator stays free of the parser package; this is the one
// re-entrant parse dependency of the core.
type GoalExtractor func(source string) ([]Goal, error)

// ValidateFix applies the structural gate to a proposed replacement
// program. Checks run in order and short-circuit: line budget, parse,
// goal-description set equality (nothing removed, altered, or added). A nil
// return is acceptance. The validator never judges semantic intent: a fix
// can pass every check here and still contradict what the developer meant.
func ValidateFix(proposed string, goals []Goal, safety SafetyConfig, extract GoalExtractor) error {
	if n := countLines(proposed); n > safety.MaxFixLines {
		return fmt.Errorf("%w: %d lines exceeds limit of %d", ErrFixRejected, n, safety.MaxFixLines)
	}

	proposedGoals, err := extract(proposed)
	if err != nil {
		return fmt.Errorf("%w: proposed code does not parse: %v", ErrFixRejected, err)
	}

	want := goalSet(goals)
	got := goalSet(proposedGoals)
	for desc := range want {
		if _, ok := got[desc]; !ok {
			return fmt.Errorf("%w: goal %q removed or altered", ErrFixRejected, desc)
		}
	}
	for desc := range got {
		if _, ok := want[desc]; !ok {
			return fmt.Errorf("%w: goal %q added", ErrFixRejected, desc)
		}
	}
	return nil
}

func goalSet(goals []Goal) map[string]struct{} {
	set := make(map[string]struct{}, len(goals))
	for _, g := range goals {
		set[g.Description] = struct{}{}
	}
	return set
}

// FixLineCount reports how the validator counts lines: trailing newlines
// do not add empty lines.
func FixLineCount(s string) int { return countLines(s) }
