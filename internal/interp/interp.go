// Package interp is the tree-walking evaluator. Deterministic transitions
// (arithmetic, binding, branching, calls) never consult the cognitive
// runtime; cognition enters only at technical errors, failed expectations,
// explicit reason expressions, and goal checks after observed bindings and
// function returns. With the null runtime every one of those side paths
// collapses to a single branch.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"cogni/internal/checkpoint"
	"cogni/internal/cognition"
	"cogni/internal/lang"
	"cogni/internal/value"
)

const maxCallDepth = 1000

// Options configures an Evaluator. Zero values get working defaults; the
// runtime defaults to the null implementation.
type Options struct {
	Runtime  cognition.Runtime
	Store    *checkpoint.Store
	Safety   cognition.SafetyConfig
	Stdout   io.Writer
	Builtins map[string]*value.Builtin
	Logger   *slog.Logger
}

// Evaluator executes one Program. Strictly single-threaded: one live
// configuration, and the only suspension point is a blocking deliberation.
type Evaluator struct {
	prog   *Program
	env    *value.Env
	rt     cognition.Runtime
	store  *checkpoint.Store
	safety cognition.SafetyConfig
	out    io.Writer
	log    *slog.Logger

	ctx     context.Context
	step    int
	depth   int
	quiet   bool
	lastVal value.Value
	frames  []frame

	activeGoals      []activeGoal
	activeInvariants []activeInvariant
}

// frame tracks the statement cursor of one live block, giving checkpoints
// their resume positions.
type frame struct {
	blockID int
	idx     int
}

type activeGoal struct {
	goal  cognition.Goal
	check lang.Expr
}

type activeInvariant struct {
	cond lang.Expr
	src  string
}

func New(prog *Program, opts Options) *Evaluator {
	if opts.Runtime == nil {
		opts.Runtime = cognition.Null
	}
	if opts.Store == nil {
		opts.Store, _ = checkpoint.NewStore(0)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	core := value.NewCoreEnv()
	installCore(core, opts.Stdout)
	for name, b := range opts.Builtins {
		core.Define(name, value.BuiltinVal(b))
	}
	return &Evaluator{
		prog:    prog,
		env:     value.NewEnv(core),
		rt:      opts.Runtime,
		store:   opts.Store,
		safety:  opts.Safety.Normalize(),
		out:     opts.Stdout,
		log:     opts.Logger,
		lastVal: value.Nil,
	}
}

// SetRuntime installs the cognitive runtime. The agent runtime needs the
// evaluator as its host, so wiring is two-phase: construct, then attach.
func (e *Evaluator) SetRuntime(rt cognition.Runtime) {
	if rt != nil {
		e.rt = rt
	}
}

// Store exposes the checkpoint store for inspection (REPL, tests).
func (e *Evaluator) Store() *checkpoint.Store { return e.store }

// Step reports the statement counter.
func (e *Evaluator) Step() int { return e.step }

// Run executes the program to completion and returns the value of the last
// top-level expression statement (or of a top-level return).
func (e *Evaluator) Run(ctx context.Context) (value.Value, error) {
	e.ctx = ctx
	err := e.evalBlock(e.prog.File.Top)
	return e.finish(err)
}

// EvalFragment parses src and runs its statements in the live top-level
// environment. This is the REPL entry point: bindings, functions, and
// declarations persist across fragments, and each fragment reports only
// its own last expression value.
func (e *Evaluator) EvalFragment(ctx context.Context, src string) (value.Value, error) {
	file, err := lang.Parse(src)
	if err != nil {
		return value.Nil, err
	}
	for _, g := range file.Goals() {
		e.prog.Goals = append(e.prog.Goals, cognition.Goal{Description: g.Description, CheckSrc: g.CheckSrc})
	}
	e.prog.Invariants = append(e.prog.Invariants, file.Invariants()...)
	collectObserved(file.Top, e.prog.Observed)

	e.ctx = ctx
	e.lastVal = value.Nil
	return e.finish(e.evalBlock(file.Top))
}

func (e *Evaluator) finish(err error) (value.Value, error) {
	if err != nil {
		var rs *returnSignal
		if errors.As(err, &rs) {
			return rs.val, nil
		}
		var bt *backtrackSignal
		if errors.As(err, &bt) {
			return value.Nil, &HaltError{Msg: fmt.Sprintf("checkpoint %q resumes a frame that is no longer live", bt.entry.Name)}
		}
		return value.Nil, err
	}
	return e.lastVal, nil
}

// evalBlock runs a statement sequence and is the landing site for
// backtracks: a signal whose resume position names this block is absorbed
// here, the snapshot is installed, and execution continues from the
// recorded index. The innermost live block with a matching ID wins.
func (e *Evaluator) evalBlock(b *lang.Block) error {
	e.frames = append(e.frames, frame{blockID: b.ID})
	defer func() { e.frames = e.frames[:len(e.frames)-1] }()

	i := 0
	for i < len(b.Stmts) {
		e.frames[len(e.frames)-1].idx = i
		if err := e.evalStmt(b.Stmts[i]); err != nil {
			var bt *backtrackSignal
			if errors.As(err, &bt) && bt.entry.Resume.BlockID == b.ID {
				if rerr := e.applyRestore(bt); rerr != nil {
					return rerr
				}
				i = bt.entry.Resume.Index
				if !bt.entry.Resume.Rerun {
					i++
				}
				continue
			}
			return err
		}
		if err := e.checkInvariants(); err != nil {
			return err
		}
		i++
	}
	return nil
}

// evalScoped runs a block in a fresh child scope. The pop walks the parent
// pointer of whatever environment is current, so a mid-block restore stays
// in effect afterwards.
func (e *Evaluator) evalScoped(b *lang.Block) error {
	e.env = value.NewEnv(e.env)
	err := e.evalBlock(b)
	e.env = e.env.Parent()
	return err
}

func (e *Evaluator) evalStmt(s lang.Stmt) error {
	if err := e.interrupted(s.Pos()); err != nil {
		return err
	}
	e.step++

	switch t := s.(type) {
	case *lang.LetStmt:
		return e.evalLet(t)

	case *lang.AssignStmt:
		return e.evalAssign(t)

	case *lang.FnStmt:
		e.env.Define(t.Name, value.FnVal(&value.Fn{
			Name:   t.Name,
			Params: t.Params,
			Body:   t.Body,
			Env:    e.env,
		}))
		return nil

	case *lang.ReturnStmt:
		v := value.Nil
		if t.Value != nil {
			var err error
			if v, err = e.evalExpr(t.Value); err != nil {
				return err
			}
		}
		return &returnSignal{val: v}

	case *lang.IfStmt:
		cond, err := e.evalExpr(t.Cond)
		if err != nil {
			return err
		}
		if cond.Truthy() {
			return e.evalScoped(t.Then)
		}
		if t.Else != nil {
			return e.evalScoped(t.Else)
		}
		return nil

	case *lang.WhileStmt:
		for {
			if err := e.interrupted(t.P); err != nil {
				return err
			}
			cond, err := e.evalExpr(t.Cond)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				return nil
			}
			if err := e.evalScoped(t.Body); err != nil {
				return err
			}
		}

	case *lang.ForStmt:
		return e.evalFor(t)

	case *lang.ExpectStmt:
		return e.evalExpect(t)

	case *lang.GoalStmt:
		e.activeGoals = append(e.activeGoals, activeGoal{
			goal:  cognition.Goal{Description: t.Description, CheckSrc: t.CheckSrc},
			check: t.Check,
		})
		return nil

	case *lang.InvariantStmt:
		e.activeInvariants = append(e.activeInvariants, activeInvariant{cond: t.Cond, src: t.Src})
		return nil

	case *lang.ObserveStmt:
		// The observed set is collected at load time; execution is a no-op.
		return nil

	case *lang.CheckpointStmt:
		if !e.quiet {
			e.saveCheckpoint(t.Name, false)
		}
		return nil

	case *lang.ExprStmt:
		v, err := e.evalExpr(t.X)
		if err != nil {
			return err
		}
		e.lastVal = v
		return nil

	default:
		return &RuntimeError{Pos: s.Pos(), Msg: "unsupported statement"}
	}
}

func (e *Evaluator) evalLet(t *lang.LetStmt) error {
	observed := e.isObserved(t.Name)
	if observed && e.active() {
		e.saveCheckpoint("before_"+t.Name, false)
	}
	v, err := e.evalExpr(t.Value)
	if err != nil {
		return err
	}
	old := value.Nil
	if prev, ok := e.env.Get(t.Name); ok {
		old = prev
	}
	e.env.Define(t.Name, v)
	if observed && e.active() {
		e.observe(cognition.ValueChanged(e.step, t.Name, old, v))
		return e.runGoalChecks(func(nv value.Value) { e.env.Define(t.Name, nv) })
	}
	return nil
}

func (e *Evaluator) evalAssign(t *lang.AssignStmt) error {
	switch target := t.Target.(type) {
	case *lang.Ident:
		observed := e.isObserved(target.Name)
		if observed && e.active() {
			e.saveCheckpoint("before_"+target.Name, false)
		}
		v, err := e.evalExpr(t.Value)
		if err != nil {
			return err
		}
		old := value.Nil
		if prev, ok := e.env.Get(target.Name); ok {
			old = prev
		}
		if aerr := e.env.Assign(target.Name, v); aerr != nil {
			ov, ferr := e.fail(t.P, "%s", aerr.Error())
			if ferr != nil {
				return ferr
			}
			// Recovered by override: the override value becomes a fresh binding.
			v = ov
			e.env.Define(target.Name, v)
		}
		if observed && e.active() {
			e.observe(cognition.ValueChanged(e.step, target.Name, old, v))
			return e.runGoalChecks(func(nv value.Value) { _ = e.env.Assign(target.Name, nv) })
		}
		return nil

	case *lang.IndexExpr:
		container, err := e.evalExpr(target.X)
		if err != nil {
			return err
		}
		idx, err := e.evalExpr(target.Index)
		if err != nil {
			return err
		}
		v, err := e.evalExpr(t.Value)
		if err != nil {
			return err
		}
		return e.setIndex(target.P, container, idx, v)

	default:
		return &RuntimeError{Pos: t.P, Msg: "invalid assignment target"}
	}
}

func (e *Evaluator) setIndex(pos lang.Position, container, idx, v value.Value) error {
	switch container.Kind {
	case value.KindList:
		if idx.Kind != value.KindNum {
			_, err := e.fail(pos, "list index must be a number, got %s", idx.Kind)
			return err
		}
		xs := container.AsList()
		i := int(idx.AsNum())
		if i < 0 || i >= len(xs) {
			_, err := e.fail(pos, "index %d out of range (len %d)", i, len(xs))
			return err
		}
		xs[i] = v
		return nil
	case value.KindMap:
		if idx.Kind != value.KindStr {
			_, err := e.fail(pos, "map key must be a string, got %s", idx.Kind)
			return err
		}
		container.AsMap()[idx.AsStr()] = v
		return nil
	default:
		_, err := e.fail(pos, "cannot assign into %s", container.Kind)
		return err
	}
}

func (e *Evaluator) evalFor(t *lang.ForStmt) error {
	iter, err := e.evalExpr(t.Iter)
	if err != nil {
		return err
	}
	items, ok := iterItems(iter)
	if !ok {
		ov, ferr := e.fail(t.P, "cannot iterate over %s", iter.Kind)
		if ferr != nil {
			return ferr
		}
		if items, ok = iterItems(ov); !ok {
			return &RuntimeError{Pos: t.P, Msg: fmt.Sprintf("cannot iterate over %s", ov.Kind)}
		}
	}
	for _, it := range items {
		if err := e.interrupted(t.P); err != nil {
			return err
		}
		scope := value.NewEnv(e.env)
		scope.Define(t.Var, it)
		e.env = scope
		err := e.evalBlock(t.Body)
		e.env = e.env.Parent()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) evalExpect(t *lang.ExpectStmt) error {
	cond, err := e.evalExpr(t.Cond)
	if err != nil {
		return err
	}
	ok := cond.Truthy()
	e.observe(cognition.ExpectationEvaluated(e.step, t.CondSrc, ok, t.Message))
	if ok || !e.active() {
		// Failed expectations never abort on their own; without cognition
		// they are recorded and ignored.
		return nil
	}
	d := e.rt.Deliberate(e.ctx, cognition.Trigger{
		Kind:     cognition.TriggerExpectFailed,
		Message:  t.Message,
		Position: t.P.String(),
	})
	return e.applyStmtDecision(d)
}

func (e *Evaluator) interrupted(pos lang.Position) error {
	if e.ctx == nil {
		return nil
	}
	select {
	case <-e.ctx.Done():
		return &RuntimeError{Pos: pos, Msg: "interrupted: " + e.ctx.Err().Error()}
	default:
		return nil
	}
}

func iterItems(v value.Value) ([]value.Value, bool) {
	switch v.Kind {
	case value.KindList:
		return v.AsList(), true
	case value.KindMap:
		m := v.AsMap()
		ks := make([]string, 0, len(m))
		for k := range m {
			ks = append(ks, k)
		}
		sort.Strings(ks)
		out := make([]value.Value, len(ks))
		for i, k := range ks {
			out[i] = value.Str(k)
		}
		return out, true
	case value.KindStr:
		var out []value.Value
		for _, r := range v.AsStr() {
			out = append(out, value.Str(string(r)))
		}
		return out, true
	default:
		return nil, false
	}
}
