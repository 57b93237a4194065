package checkpoint

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cogni/internal/value"
)

func genValue() gopter.Gen {
	return gen.OneGenOf(
		gen.Float64Range(-1e6, 1e6).Map(value.Num),
		gen.AlphaString().Map(value.Str),
		gen.Bool().Map(value.Bool),
		gen.SliceOfN(3, gen.Float64Range(-100, 100)).Map(func(fs []float64) value.Value {
			xs := make([]value.Value, len(fs))
			for i, f := range fs {
				xs[i] = value.Num(f)
			}
			return value.List(xs)
		}),
	)
}

// Property: restore(save(env, step)) is deep-equal to env with the same
// step, and repeated restores agree (backtrack determinism).
func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("save/restore round-trips and repeats deterministically", prop.ForAll(
		func(names []string, step int) bool {
			s, err := NewStore(0)
			if err != nil {
				return false
			}
			env := value.NewEnv(nil)
			vals := map[string]value.Value{}
			g := genValue()
			for _, n := range names {
				if n == "" {
					continue
				}
				r := g(gopter.DefaultGenParameters())
				v, ok := r.Retrieve()
				if !ok {
					continue
				}
				val := v.(value.Value)
				env.Define(n, val)
				vals[n] = val
			}

			s.Save("cp", env, step, Resume{BlockID: 1, Index: 2})

			a, ok := s.Restore("cp")
			if !ok || a.Step != step {
				return false
			}
			b, _ := s.Restore("cp")
			for n, want := range vals {
				av, aok := a.Env.Get(n)
				bv, bok := b.Env.Get(n)
				if !aok || !bok || !av.Equal(want) || !av.Equal(bv) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.AlphaString()),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t)
}
