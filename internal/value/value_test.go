package value

import (
	"encoding/json"
	"testing"

	"cogni/internal/tester"
)

func TestTruthy(t *testing.T) {
	tester.False(t, Nil.Truthy())
	tester.False(t, Bool(false).Truthy())
	tester.True(t, Bool(true).Truthy())
	tester.True(t, Num(0).Truthy(), "zero is truthy, only nil/false are falsy")
	tester.True(t, Str("").Truthy())
	tester.True(t, List(nil).Truthy())
}

func TestEqual(t *testing.T) {
	tester.True(t, Num(3.5).Equal(Num(3.5)))
	tester.False(t, Num(3.5).Equal(Str("3.5")))
	tester.True(t, List([]Value{Num(1), Str("a")}).Equal(List([]Value{Num(1), Str("a")})))
	tester.False(t, List([]Value{Num(1)}).Equal(List([]Value{Num(2)})))

	a := Map(map[string]Value{"k": List([]Value{Num(1)})})
	b := Map(map[string]Value{"k": List([]Value{Num(1)})})
	tester.True(t, a.Equal(b))

	f := FnVal(&Fn{Name: "f"})
	tester.True(t, f.Equal(f))
	tester.False(t, f.Equal(FnVal(&Fn{Name: "f"})))
}

func TestDeepCopyIsolation(t *testing.T) {
	inner := []Value{Num(1), Num(2)}
	orig := Map(map[string]Value{"xs": List(inner)})
	cp := orig.DeepCopy()

	// Mutating the original must not reach the copy.
	orig.AsMap()["xs"].AsList()[0] = Num(99)
	tester.Eq(t, cp.AsMap()["xs"].AsList()[0], Num(1))
	orig.AsMap()["extra"] = Nil
	_, ok := cp.AsMap()["extra"]
	tester.False(t, ok)
}

func TestStringFormatting(t *testing.T) {
	tester.Eq(t, Num(35.0).String(), "35")
	tester.Eq(t, Num(3.25).String(), "3.25")
	tester.Eq(t, Str("hi").String(), "hi")
	tester.Eq(t, List([]Value{Str("hi"), Nil}).String(), `["hi", nil]`)
	tester.Eq(t, Map(map[string]Value{"b": Num(2), "a": Num(1)}).String(), `{"a": 1, "b": 2}`)
}

func TestJSONRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"n":  Num(1.5),
		"s":  Str("x"),
		"b":  Bool(true),
		"xs": List([]Value{Nil, Num(2)}),
	})
	raw, err := json.Marshal(v)
	tester.NoErr(t, err)
	back, err := FromJSON(raw)
	tester.NoErr(t, err)
	tester.True(t, v.Equal(back))
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte(`{"unterminated`))
	tester.Err(t, err)
}
