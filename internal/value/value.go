// Package value defines the runtime value model and the scoped environment
// the evaluator reads and writes. Values are a small tagged sum: nil, bool,
// number (float64), string, list, map, and two function kinds. Lists and
// maps are the only mutable payloads, so deep copies recurse through those
// alone.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the payload held in Value.Data.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNum
	KindStr
	KindList
	KindMap
	KindFn
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindFn:
		return "fn"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Value is the universal runtime carrier. The Kind tag determines which Go
// type Data holds: nil, bool, float64, string, []Value, map[string]Value,
// *Fn, or *Builtin.
type Value struct {
	Kind Kind
	Data any
}

// Nil is the singleton nil value.
var Nil = Value{Kind: KindNil}

func Bool(b bool) Value             { return Value{Kind: KindBool, Data: b} }
func Num(f float64) Value           { return Value{Kind: KindNum, Data: f} }
func Str(s string) Value            { return Value{Kind: KindStr, Data: s} }
func List(xs []Value) Value         { return Value{Kind: KindList, Data: xs} }
func Map(m map[string]Value) Value  { return Value{Kind: KindMap, Data: m} }
func FnVal(f *Fn) Value             { return Value{Kind: KindFn, Data: f} }
func BuiltinVal(b *Builtin) Value   { return Value{Kind: KindBuiltin, Data: b} }

// Fn is a user-defined function. Body is the parsed function body, held
// opaquely so this package stays independent of the AST; the evaluator owns
// the concrete type. Env is the closure environment captured at definition.
type Fn struct {
	Name   string
	Params []string
	Body   any
	Env    *Env
}

// Builtin is a host-implemented function. Arity < 0 means variadic.
type Builtin struct {
	Name  string
	Arity int
	Impl  func(args []Value) (Value, error)
}

func (v Value) AsBool() bool           { b, _ := v.Data.(bool); return b }
func (v Value) AsNum() float64         { f, _ := v.Data.(float64); return f }
func (v Value) AsStr() string          { s, _ := v.Data.(string); return s }
func (v Value) AsList() []Value        { l, _ := v.Data.([]Value); return l }
func (v Value) AsMap() map[string]Value { m, _ := v.Data.(map[string]Value); return m }
func (v Value) AsFn() *Fn              { f, _ := v.Data.(*Fn); return f }
func (v Value) AsBuiltin() *Builtin    { b, _ := v.Data.(*Builtin); return b }

// Truthy reports the boolean interpretation of v: nil and false are falsy,
// everything else is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// Equal reports deep structural equality. Functions compare by identity.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.AsBool() == o.AsBool()
	case KindNum:
		return v.AsNum() == o.AsNum()
	case KindStr:
		return v.AsStr() == o.AsStr()
	case KindList:
		a, b := v.AsList(), o.AsList()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindMap:
		a, b := v.AsMap(), o.AsMap()
		if len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	case KindFn:
		return v.Data == o.Data
	case KindBuiltin:
		return v.Data == o.Data
	default:
		return false
	}
}

// DeepCopy returns a copy sharing no mutable state with v. Lists and maps
// are copied recursively; scalars are value copies; functions are shared by
// reference (they are immutable once defined).
func (v Value) DeepCopy() Value {
	switch v.Kind {
	case KindList:
		src := v.AsList()
		dst := make([]Value, len(src))
		for i := range src {
			dst[i] = src[i].DeepCopy()
		}
		return List(dst)
	case KindMap:
		src := v.AsMap()
		dst := make(map[string]Value, len(src))
		for k, e := range src {
			dst[k] = e.DeepCopy()
		}
		return Map(dst)
	default:
		return v
	}
}

// String renders v for program output: strings bare at the top level,
// quoted inside lists and maps, map keys in sorted order.
func (v Value) String() string {
	if v.Kind == KindStr {
		return v.AsStr()
	}
	return v.repr()
}

func (v Value) repr() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindNum:
		return FormatNum(v.AsNum())
	case KindStr:
		return strconv.Quote(v.AsStr())
	case KindList:
		xs := v.AsList()
		parts := make([]string, len(xs))
		for i := range xs {
			parts[i] = xs[i].repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := v.AsMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + m[k].repr()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFn:
		if f := v.AsFn(); f != nil && f.Name != "" {
			return "<fn " + f.Name + ">"
		}
		return "<fn>"
	case KindBuiltin:
		if b := v.AsBuiltin(); b != nil {
			return "<builtin " + b.Name + ">"
		}
		return "<builtin>"
	default:
		return fmt.Sprintf("<kind %d>", v.Kind)
	}
}

// FormatNum renders a float the way the language prints numbers: integral
// values without a decimal point, everything else in shortest form.
func FormatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
