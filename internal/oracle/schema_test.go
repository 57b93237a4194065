package oracle

import (
	"encoding/json"
	"testing"

	"cogni/internal/cognition"
	"cogni/internal/tester"
	"cogni/internal/value"
)

func TestDecodeContinue(t *testing.T) {
	d, err := DecodeDecision(json.RawMessage(`{"decision":"continue"}`))
	tester.NoErr(t, err)
	tester.Eq(t, d.Kind, cognition.DecisionContinue)
}

func TestDecodeOverride(t *testing.T) {
	d, err := DecodeDecision(json.RawMessage(`{"decision":"override","value":35}`))
	tester.NoErr(t, err)
	tester.Eq(t, d.Kind, cognition.DecisionOverride)
	tester.True(t, d.Value.Equal(value.Num(35)), "override carries the value")

	d, err = DecodeDecision(json.RawMessage(`{"decision":"override","value":{"items":[1,2]}}`))
	tester.NoErr(t, err)
	m := d.Value.AsMap()
	tester.Eq(t, len(m), 1)
	tester.Eq(t, len(m["items"].AsList()), 2)

	// null is a legitimate override value
	d, err = DecodeDecision(json.RawMessage(`{"decision":"override","value":null}`))
	tester.NoErr(t, err)
	tester.Eq(t, d.Value.Kind, value.KindNil)
}

func TestDecodeFix(t *testing.T) {
	d, err := DecodeDecision(json.RawMessage(`{"decision":"fix","new_code":"let x = 1","explanation":"seed x"}`))
	tester.NoErr(t, err)
	tester.Eq(t, d.Kind, cognition.DecisionFix)
	tester.Eq(t, d.NewCode, "let x = 1")
	tester.Eq(t, d.Explanation, "seed x")
}

func TestDecodeBacktrack(t *testing.T) {
	raw := `{"decision":"backtrack","checkpoint":"before_retries","adjustments":[{"variable":"limit","value":10},{"variable":"mode","value":"slow"}]}`
	d, err := DecodeDecision(json.RawMessage(raw))
	tester.NoErr(t, err)
	tester.Eq(t, d.Kind, cognition.DecisionBacktrack)
	tester.Eq(t, d.Checkpoint, "before_retries")
	tester.Eq(t, len(d.Adjustments), 2)
	tester.Eq(t, d.Adjustments[0].Variable, "limit")
	tester.True(t, d.Adjustments[0].Value.Equal(value.Num(10)), "first adjustment value")
	tester.Eq(t, d.Adjustments[1].Variable, "mode")

	// adjustments are optional
	d, err = DecodeDecision(json.RawMessage(`{"decision":"backtrack","checkpoint":"start"}`))
	tester.NoErr(t, err)
	tester.Eq(t, len(d.Adjustments), 0)
}

func TestDecodeHalt(t *testing.T) {
	d, err := DecodeDecision(json.RawMessage(`{"decision":"halt","error":"unrecoverable"}`))
	tester.NoErr(t, err)
	tester.Eq(t, d.Kind, cognition.DecisionHalt)
	tester.Eq(t, d.Err, "unrecoverable")
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `continue please`},
		{"unknown decision", `{"decision":"retry"}`},
		{"missing decision", `{"value":1}`},
		{"fix without code", `{"decision":"fix","explanation":"x"}`},
		{"backtrack without checkpoint", `{"decision":"backtrack"}`},
		{"halt without error", `{"decision":"halt"}`},
		{"extra field", `{"decision":"continue","note":"hi"}`},
		{"override without value", `{"decision":"override"}`},
		{"adjustment missing variable", `{"decision":"backtrack","checkpoint":"c","adjustments":[{"value":1}]}`},
		{"array not object", `[{"decision":"continue"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDecision(json.RawMessage(tc.raw))
			tester.Err(t, err, tc.name)
			tester.ErrIs(t, err, ErrInvalidJSON)
		})
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	raw := json.RawMessage(`{"decision":"override","value":[1,"two",true,null]}`)
	a, err := DecodeDecision(raw)
	tester.NoErr(t, err)
	b, err := DecodeDecision(raw)
	tester.NoErr(t, err)
	tester.True(t, a.Value.Equal(b.Value), "same raw decodes to equal values")
}
