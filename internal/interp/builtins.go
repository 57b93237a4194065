package interp

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"cogni/internal/value"
)

// installCore defines the always-available builtins in the core frame.
// push returns the extended list rather than mutating in place, so lists
// behave predictably across checkpoint snapshots.
func installCore(core *value.Env, out io.Writer) {
	def := func(name string, arity int, impl func([]value.Value) (value.Value, error)) {
		core.Define(name, value.BuiltinVal(&value.Builtin{Name: name, Arity: arity, Impl: impl}))
	}

	def("print", -1, func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		return value.Nil, nil
	})

	def("len", 1, func(args []value.Value) (value.Value, error) {
		switch args[0].Kind {
		case value.KindStr:
			return value.Num(float64(len(args[0].AsStr()))), nil
		case value.KindList:
			return value.Num(float64(len(args[0].AsList()))), nil
		case value.KindMap:
			return value.Num(float64(len(args[0].AsMap()))), nil
		default:
			return value.Nil, fmt.Errorf("len: cannot measure %s", args[0].Kind)
		}
	})

	def("str", 1, func(args []value.Value) (value.Value, error) {
		return value.Str(args[0].String()), nil
	})

	def("num", 1, func(args []value.Value) (value.Value, error) {
		switch args[0].Kind {
		case value.KindNum:
			return args[0], nil
		case value.KindStr:
			f, err := strconv.ParseFloat(strings.TrimSpace(args[0].AsStr()), 64)
			if err != nil {
				return value.Nil, fmt.Errorf("num: cannot parse %q", args[0].AsStr())
			}
			return value.Num(f), nil
		case value.KindBool:
			if args[0].AsBool() {
				return value.Num(1), nil
			}
			return value.Num(0), nil
		default:
			return value.Nil, fmt.Errorf("num: cannot convert %s", args[0].Kind)
		}
	})

	def("type", 1, func(args []value.Value) (value.Value, error) {
		return value.Str(args[0].Kind.String()), nil
	})

	def("push", 2, func(args []value.Value) (value.Value, error) {
		if args[0].Kind != value.KindList {
			return value.Nil, fmt.Errorf("push: first argument must be a list, got %s", args[0].Kind)
		}
		src := args[0].AsList()
		dst := make([]value.Value, len(src)+1)
		copy(dst, src)
		dst[len(src)] = args[1]
		return value.List(dst), nil
	})

	def("keys", 1, func(args []value.Value) (value.Value, error) {
		if args[0].Kind != value.KindMap {
			return value.Nil, fmt.Errorf("keys: argument must be a map, got %s", args[0].Kind)
		}
		m := args[0].AsMap()
		ks := make([]string, 0, len(m))
		for k := range m {
			ks = append(ks, k)
		}
		sort.Strings(ks)
		out := make([]value.Value, len(ks))
		for i, k := range ks {
			out[i] = value.Str(k)
		}
		return value.List(out), nil
	})

	def("range", -1, func(args []value.Value) (value.Value, error) {
		var lo, hi float64
		switch len(args) {
		case 1:
			hi = args[0].AsNum()
		case 2:
			lo, hi = args[0].AsNum(), args[1].AsNum()
		default:
			return value.Nil, fmt.Errorf("range: want 1 or 2 arguments, got %d", len(args))
		}
		for _, a := range args {
			if a.Kind != value.KindNum {
				return value.Nil, fmt.Errorf("range: arguments must be numbers, got %s", a.Kind)
			}
		}
		var out []value.Value
		for i := lo; i < hi; i++ {
			out = append(out, value.Num(i))
		}
		return value.List(out), nil
	})

	def("abs", 1, func(args []value.Value) (value.Value, error) {
		if args[0].Kind != value.KindNum {
			return value.Nil, fmt.Errorf("abs: argument must be a number, got %s", args[0].Kind)
		}
		return value.Num(math.Abs(args[0].AsNum())), nil
	})

	def("min", -1, func(args []value.Value) (value.Value, error) {
		return pickNum("min", args, func(a, b float64) bool { return b < a })
	})

	def("max", -1, func(args []value.Value) (value.Value, error) {
		return pickNum("max", args, func(a, b float64) bool { return b > a })
	})
}

func pickNum(name string, args []value.Value, better func(cur, cand float64) bool) (value.Value, error) {
	if len(args) == 0 {
		return value.Nil, fmt.Errorf("%s: want at least 1 argument", name)
	}
	if args[0].Kind != value.KindNum {
		return value.Nil, fmt.Errorf("%s: arguments must be numbers, got %s", name, args[0].Kind)
	}
	best := args[0].AsNum()
	for _, a := range args[1:] {
		if a.Kind != value.KindNum {
			return value.Nil, fmt.Errorf("%s: arguments must be numbers, got %s", name, a.Kind)
		}
		if better(best, a.AsNum()) {
			best = a.AsNum()
		}
	}
	return value.Num(best), nil
}
