package interp

import (
	"context"
	"fmt"

	"cogni/internal/checkpoint"
	"cogni/internal/cognition"
	"cogni/internal/lang"
	"cogni/internal/value"
)

// active reports whether cognitive side paths should run. Quiet mode covers
// goal and invariant check evaluation, which must never recurse into
// deliberation or instrumentation.
func (e *Evaluator) active() bool {
	return !e.quiet && e.rt.IsActive()
}

func (e *Evaluator) observe(ev cognition.ObservationEvent) {
	if !e.quiet {
		e.rt.Observe(ev)
	}
}

func (e *Evaluator) isObserved(name string) bool {
	_, ok := e.prog.Observed[name]
	return ok
}

// fail raises a technical error. With an active runtime the error becomes a
// deliberation; Continue propagates the original error, Override supplies
// the failing expression's value. Deliberation happens once, where the
// error is created, never again while it unwinds.
func (e *Evaluator) fail(pos lang.Position, format string, args ...any) (value.Value, error) {
	rerr := &RuntimeError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
	if !e.active() {
		return value.Nil, rerr
	}
	d := e.rt.Deliberate(e.ctx, cognition.Trigger{
		Kind:     cognition.TriggerTechnicalError,
		Message:  rerr.Msg,
		Position: pos.String(),
	})
	return e.applyExprDecision(d, rerr)
}

// applyExprDecision maps a decision onto an expression-shaped outcome.
func (e *Evaluator) applyExprDecision(d cognition.Decision, orig error) (value.Value, error) {
	switch d.Kind {
	case cognition.DecisionOverride:
		return d.Value, nil
	case cognition.DecisionFix:
		if err := e.acceptFix(d); err != nil {
			return value.Nil, err
		}
		return value.Nil, orig
	case cognition.DecisionBacktrack:
		return value.Nil, e.beginBacktrack(d)
	case cognition.DecisionHalt:
		return value.Nil, &HaltError{Msg: d.Err}
	default: // continue
		return value.Nil, orig
	}
}

// applyStmtDecision maps a decision onto a statement-shaped outcome, where
// Continue and Override both mean "proceed".
func (e *Evaluator) applyStmtDecision(d cognition.Decision) error {
	switch d.Kind {
	case cognition.DecisionFix:
		return e.acceptFix(d)
	case cognition.DecisionBacktrack:
		return e.beginBacktrack(d)
	case cognition.DecisionHalt:
		return &HaltError{Msg: d.Err}
	default:
		return nil
	}
}

// acceptFix validates a proposed fix at the application boundary. Accepted
// fixes unwind the attempt as a PendingFix; rejected ones degrade to
// Continue (nil), the rejection reason living only in the reasoning trace.
func (e *Evaluator) acceptFix(d cognition.Decision) error {
	if err := cognition.ValidateFix(d.NewCode, e.prog.Goals, e.safety, ExtractGoals); err != nil {
		e.log.Debug("fix rejected at application", "err", err)
		return nil
	}
	return &PendingFix{NewCode: d.NewCode, Explanation: d.Explanation}
}

// beginBacktrack resolves a backtrack decision against the store. A name
// the store does not hold is a protocol violation by the oracle, which was
// given the list of valid names, and halts the run.
func (e *Evaluator) beginBacktrack(d cognition.Decision) error {
	entry, ok := e.store.Restore(d.Checkpoint)
	if !ok {
		return &HaltError{Msg: fmt.Sprintf("backtrack to unknown checkpoint %q", d.Checkpoint)}
	}
	return &backtrackSignal{entry: entry, adjustments: d.Adjustments}
}

// applyRestore installs a restored snapshot: environment and step counter
// wholesale, then the adjustments in list order.
func (e *Evaluator) applyRestore(bt *backtrackSignal) error {
	e.env = bt.entry.Env
	e.step = bt.entry.Step
	for _, adj := range bt.adjustments {
		if e.env.Has(adj.Variable) {
			if err := e.env.Assign(adj.Variable, adj.Value); err != nil {
				return &HaltError{Msg: fmt.Sprintf("backtrack adjustment %q: %v", adj.Variable, err)}
			}
		} else {
			e.env.Define(adj.Variable, adj.Value)
		}
	}
	return nil
}

// saveCheckpoint captures the live environment under name, resumable at
// the current statement of the innermost block. rerun controls whether
// that statement re-executes after a restore (call sites) or is skipped
// (bindings, explicit checkpoints).
func (e *Evaluator) saveCheckpoint(name string, rerun bool) {
	fr := e.frames[len(e.frames)-1]
	e.store.Save(name, e.env, e.step, checkpoint.Resume{
		BlockID: fr.blockID,
		Index:   fr.idx,
		Rerun:   rerun,
	})
	e.observe(cognition.CheckpointCreated(e.step, name))
}

// runGoalChecks asks the runtime to re-evaluate goals and applies the
// returned decisions in order: Override rebinds through the supplied
// function, Halt stops immediately, Fix and Backtrack unwind.
func (e *Evaluator) runGoalChecks(rebind func(value.Value)) error {
	for _, d := range e.rt.CheckGoals(e.ctx) {
		switch d.Kind {
		case cognition.DecisionOverride:
			rebind(d.Value)
		case cognition.DecisionFix:
			if err := e.acceptFix(d); err != nil {
				return err
			}
		case cognition.DecisionBacktrack:
			return e.beginBacktrack(d)
		case cognition.DecisionHalt:
			return &HaltError{Msg: d.Err}
		}
	}
	return nil
}

// checkInvariants evaluates every activated invariant against current
// state. A false result is a hard safety stop, not a deliberation; a check
// that cannot be evaluated is vacuously inapplicable.
func (e *Evaluator) checkInvariants() error {
	if e.quiet || len(e.activeInvariants) == 0 {
		return nil
	}
	for _, inv := range e.activeInvariants {
		v, err := e.evalQuiet(inv.cond)
		if err != nil {
			continue
		}
		if !v.Truthy() {
			return &HaltError{Msg: "invariant violated: " + inv.src}
		}
	}
	return nil
}

func (e *Evaluator) evalQuiet(x lang.Expr) (value.Value, error) {
	prev := e.quiet
	e.quiet = true
	defer func() { e.quiet = prev }()
	return e.evalExpr(x)
}

// The evaluator is the agent runtime's host: the methods below expose the
// suspended program's state for deliberation payloads.

func (e *Evaluator) Source() string { return e.prog.Source }

func (e *Evaluator) Goals() []cognition.Goal { return e.prog.Goals }

func (e *Evaluator) Invariants() []string { return e.prog.Invariants }

func (e *Evaluator) Variables() map[string]value.Value { return e.env.Flatten() }

func (e *Evaluator) CheckpointNames() []string { return e.store.Names() }

// ViolatedGoals evaluates each active goal check quietly and reports the
// goals whose checks are false. Unevaluable checks are not violations.
func (e *Evaluator) ViolatedGoals(_ context.Context) []cognition.Goal {
	var out []cognition.Goal
	for _, g := range e.activeGoals {
		if g.check == nil {
			continue
		}
		v, err := e.evalQuiet(g.check)
		if err != nil {
			continue
		}
		if !v.Truthy() {
			out = append(out, g.goal)
		}
	}
	return out
}
