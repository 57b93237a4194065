package interp

import (
	"errors"
	"math"

	"cogni/internal/cognition"
	"cogni/internal/lang"
	"cogni/internal/value"
)

func (e *Evaluator) evalExpr(x lang.Expr) (value.Value, error) {
	switch t := x.(type) {
	case *lang.NumberLit:
		return value.Num(t.Val), nil
	case *lang.StringLit:
		return value.Str(t.Val), nil
	case *lang.BoolLit:
		return value.Bool(t.Val), nil
	case *lang.NilLit:
		return value.Nil, nil

	case *lang.Ident:
		if v, ok := e.env.Get(t.Name); ok {
			return v, nil
		}
		return e.fail(t.P, "undefined variable: %s", t.Name)

	case *lang.ListLit:
		xs := make([]value.Value, len(t.Elems))
		for i, el := range t.Elems {
			v, err := e.evalExpr(el)
			if err != nil {
				return value.Nil, err
			}
			xs[i] = v
		}
		return value.List(xs), nil

	case *lang.MapLit:
		m := make(map[string]value.Value, len(t.Entries))
		for _, en := range t.Entries {
			v, err := e.evalExpr(en.Val)
			if err != nil {
				return value.Nil, err
			}
			m[en.Key] = v
		}
		return value.Map(m), nil

	case *lang.UnaryExpr:
		return e.evalUnary(t)
	case *lang.BinaryExpr:
		return e.evalBinary(t)
	case *lang.IndexExpr:
		return e.evalIndex(t)
	case *lang.CallExpr:
		return e.evalCall(t)
	case *lang.ReasonExpr:
		return e.evalReason(t)

	default:
		return value.Nil, &RuntimeError{Pos: x.Pos(), Msg: "unsupported expression"}
	}
}

func (e *Evaluator) evalUnary(t *lang.UnaryExpr) (value.Value, error) {
	v, err := e.evalExpr(t.X)
	if err != nil {
		return value.Nil, err
	}
	switch t.Op {
	case lang.MINUS:
		if v.Kind != value.KindNum {
			return e.fail(t.P, "cannot negate %s", v.Kind)
		}
		return value.Num(-v.AsNum()), nil
	case lang.BANG:
		return value.Bool(!v.Truthy()), nil
	default:
		return value.Nil, &RuntimeError{Pos: t.P, Msg: "unsupported unary operator"}
	}
}

func (e *Evaluator) evalBinary(t *lang.BinaryExpr) (value.Value, error) {
	// && and || short-circuit and yield the deciding operand.
	if t.Op == lang.ANDAND || t.Op == lang.OROR {
		l, err := e.evalExpr(t.X)
		if err != nil {
			return value.Nil, err
		}
		if t.Op == lang.ANDAND && !l.Truthy() {
			return l, nil
		}
		if t.Op == lang.OROR && l.Truthy() {
			return l, nil
		}
		return e.evalExpr(t.Y)
	}

	l, err := e.evalExpr(t.X)
	if err != nil {
		return value.Nil, err
	}
	r, err := e.evalExpr(t.Y)
	if err != nil {
		return value.Nil, err
	}

	switch t.Op {
	case lang.PLUS:
		switch {
		case l.Kind == value.KindNum && r.Kind == value.KindNum:
			return value.Num(l.AsNum() + r.AsNum()), nil
		case l.Kind == value.KindStr && r.Kind == value.KindStr:
			return value.Str(l.AsStr() + r.AsStr()), nil
		case l.Kind == value.KindList && r.Kind == value.KindList:
			a, b := l.AsList(), r.AsList()
			out := make([]value.Value, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return value.List(out), nil
		default:
			return e.fail(t.P, "cannot add %s and %s", l.Kind, r.Kind)
		}

	case lang.MINUS, lang.STAR, lang.SLASH, lang.PERCENT:
		if l.Kind != value.KindNum || r.Kind != value.KindNum {
			return e.fail(t.P, "operator %s wants numbers, got %s and %s", t.Op, l.Kind, r.Kind)
		}
		a, b := l.AsNum(), r.AsNum()
		switch t.Op {
		case lang.MINUS:
			return value.Num(a - b), nil
		case lang.STAR:
			return value.Num(a * b), nil
		case lang.SLASH:
			if b == 0 {
				return e.fail(t.P, "division by zero")
			}
			return value.Num(a / b), nil
		default: // PERCENT
			if b == 0 {
				return e.fail(t.P, "modulo by zero")
			}
			return value.Num(math.Mod(a, b)), nil
		}

	case lang.EQ:
		return value.Bool(l.Equal(r)), nil
	case lang.NEQ:
		return value.Bool(!l.Equal(r)), nil

	case lang.LT, lang.LE, lang.GT, lang.GE:
		switch {
		case l.Kind == value.KindNum && r.Kind == value.KindNum:
			return value.Bool(compareNums(t.Op, l.AsNum(), r.AsNum())), nil
		case l.Kind == value.KindStr && r.Kind == value.KindStr:
			return value.Bool(compareStrs(t.Op, l.AsStr(), r.AsStr())), nil
		default:
			return e.fail(t.P, "cannot compare %s and %s", l.Kind, r.Kind)
		}

	default:
		return value.Nil, &RuntimeError{Pos: t.P, Msg: "unsupported binary operator"}
	}
}

func compareNums(op lang.TokenType, a, b float64) bool {
	switch op {
	case lang.LT:
		return a < b
	case lang.LE:
		return a <= b
	case lang.GT:
		return a > b
	default:
		return a >= b
	}
}

func compareStrs(op lang.TokenType, a, b string) bool {
	switch op {
	case lang.LT:
		return a < b
	case lang.LE:
		return a <= b
	case lang.GT:
		return a > b
	default:
		return a >= b
	}
}

func (e *Evaluator) evalIndex(t *lang.IndexExpr) (value.Value, error) {
	container, err := e.evalExpr(t.X)
	if err != nil {
		return value.Nil, err
	}
	idx, err := e.evalExpr(t.Index)
	if err != nil {
		return value.Nil, err
	}
	switch container.Kind {
	case value.KindList:
		if idx.Kind != value.KindNum {
			return e.fail(t.P, "list index must be a number, got %s", idx.Kind)
		}
		xs := container.AsList()
		i := int(idx.AsNum())
		if i < 0 || i >= len(xs) {
			return e.fail(t.P, "index %d out of range (len %d)", i, len(xs))
		}
		return xs[i], nil
	case value.KindMap:
		if idx.Kind != value.KindStr {
			return e.fail(t.P, "map key must be a string, got %s", idx.Kind)
		}
		if v, ok := container.AsMap()[idx.AsStr()]; ok {
			return v, nil
		}
		return value.Nil, nil
	case value.KindStr:
		if idx.Kind != value.KindNum {
			return e.fail(t.P, "string index must be a number, got %s", idx.Kind)
		}
		s := container.AsStr()
		i := int(idx.AsNum())
		if i < 0 || i >= len(s) {
			return e.fail(t.P, "index %d out of range (len %d)", i, len(s))
		}
		return value.Str(string(s[i])), nil
	default:
		return e.fail(t.P, "cannot index %s", container.Kind)
	}
}

func (e *Evaluator) evalCall(t *lang.CallExpr) (value.Value, error) {
	callee, err := e.evalExpr(t.Fn)
	if err != nil {
		return value.Nil, err
	}
	args := make([]value.Value, len(t.Args))
	for i, a := range t.Args {
		v, err := e.evalExpr(a)
		if err != nil {
			return value.Nil, err
		}
		args[i] = v
	}

	switch callee.Kind {
	case value.KindBuiltin:
		b := callee.AsBuiltin()
		if b.Arity >= 0 && len(args) != b.Arity {
			return e.fail(t.P, "%s expects %d arguments, got %d", b.Name, b.Arity, len(args))
		}
		v, err := b.Impl(args)
		if err != nil {
			return e.fail(t.P, "%s", err.Error())
		}
		return v, nil

	case value.KindFn:
		return e.callFn(callee.AsFn(), args, t.P)

	default:
		return e.fail(t.P, "cannot call %s", callee.Kind)
	}
}

// callFn invokes a user function. Call sites of active runs capture a
// call_<name> checkpoint first, so a later backtrack can redo the call; the
// return is an observation point with goal checks, where Override swaps
// the returned value.
func (e *Evaluator) callFn(f *value.Fn, args []value.Value, pos lang.Position) (value.Value, error) {
	body, ok := f.Body.(*lang.Block)
	if !ok {
		return value.Nil, &RuntimeError{Pos: pos, Msg: "function " + f.Name + " has no body"}
	}
	if len(args) != len(f.Params) {
		return e.fail(pos, "%s expects %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	if e.depth >= maxCallDepth {
		return e.fail(pos, "call depth exceeded (%d)", maxCallDepth)
	}

	if e.active() {
		e.saveCheckpoint("call_"+f.Name, true)
	}

	saved := e.env
	scope := value.NewEnv(f.Env)
	for i, p := range f.Params {
		scope.Define(p, args[i])
	}
	e.env = scope
	e.depth++
	err := e.evalBlock(body)
	e.depth--
	e.env = saved

	ret := value.Nil
	if err != nil {
		var rs *returnSignal
		if !errors.As(err, &rs) {
			return value.Nil, err
		}
		ret = rs.val
	}

	if e.active() {
		e.observe(cognition.FunctionReturned(e.step, f.Name, ret))
		if gerr := e.runGoalChecks(func(v value.Value) { ret = v }); gerr != nil {
			return value.Nil, gerr
		}
	}
	return ret, nil
}

// evalReason is the explicit deliberation request. It always routes to the
// runtime; under the null runtime the answer is Continue and the
// expression evaluates to nil.
func (e *Evaluator) evalReason(t *lang.ReasonExpr) (value.Value, error) {
	if e.quiet {
		return value.Nil, nil
	}
	d := e.rt.Deliberate(e.ctx, cognition.Trigger{
		Kind:     cognition.TriggerExplicitReason,
		Question: t.Question,
		Position: t.P.String(),
	})
	return e.applyExprDecision(d, nil)
}
