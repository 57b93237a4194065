package interp

import (
	"fmt"

	"cogni/internal/checkpoint"
	"cogni/internal/cognition"
	"cogni/internal/lang"
	"cogni/internal/value"
)

// RuntimeError is a technical evaluation failure: the evaluator could not
// produce a value at the given position.
type RuntimeError struct {
	Pos lang.Position
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

// HaltError carries a halt decision or a safety stop out of the run.
type HaltError struct {
	Msg string
}

func (e *HaltError) Error() string { return e.Msg }

// returnSignal unwinds a function body to its call site. It is an error
// only so it can ride the normal error path; callFn always intercepts it.
type returnSignal struct {
	val value.Value
}

func (s *returnSignal) Error() string { return "return outside function" }

// backtrackSignal unwinds evaluation to the block that owns the restored
// checkpoint's resume position. The entry's environment is already a
// private copy.
type backtrackSignal struct {
	entry       checkpoint.Entry
	adjustments []cognition.Adjustment
}

func (s *backtrackSignal) Error() string {
	return fmt.Sprintf("backtrack to %q", s.entry.Name)
}

// PendingFix aborts the current attempt with a validated replacement
// program for the orchestrator to install.
type PendingFix struct {
	NewCode     string
	Explanation string
}

func (s *PendingFix) Error() string { return "pending fix: " + s.Explanation }
