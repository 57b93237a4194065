package lang

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cogni/internal/tester"
)

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse(src)
	tester.NoErr(t, err, src)
	return f
}

func TestParseStatements(t *testing.T) {
	f := mustParse(t, `
let x = 1 + 2 * 3
x = x - 1
fn add(a, b) {
    return a + b
}
if x > 0 {
    print(x)
} else if x == 0 {
    print("zero")
} else {
    print("negative")
}
while x < 10 { x = x + 1 }
for item in [1, 2, 3] {
    print(item)
}
`)
	tester.Eq(t, len(f.Top.Stmts), 6)

	let, ok := f.Top.Stmts[0].(*LetStmt)
	tester.True(t, ok)
	tester.Eq(t, let.Name, "x")
	// 1 + 2 * 3 must parse as 1 + (2 * 3).
	bin := let.Value.(*BinaryExpr)
	tester.Eq(t, bin.Op, PLUS)
	inner := bin.Y.(*BinaryExpr)
	tester.Eq(t, inner.Op, STAR)
}

func TestParsePrecedenceAndUnary(t *testing.T) {
	f := mustParse(t, `let ok = !done && x + 1 >= limit || fallback`)
	v := f.Top.Stmts[0].(*LetStmt).Value
	or := v.(*BinaryExpr)
	tester.Eq(t, or.Op, OROR)
	and := or.X.(*BinaryExpr)
	tester.Eq(t, and.Op, ANDAND)
	not := and.X.(*UnaryExpr)
	tester.Eq(t, not.Op, BANG)
	cmp := and.Y.(*BinaryExpr)
	tester.Eq(t, cmp.Op, GE)
}

func TestParseCallsAndIndexing(t *testing.T) {
	f := mustParse(t, `let v = lookup(table, "key")[0]`)
	idx := f.Top.Stmts[0].(*LetStmt).Value.(*IndexExpr)
	call := idx.X.(*CallExpr)
	tester.Eq(t, len(call.Args), 2)
	tester.Eq(t, call.Fn.(*Ident).Name, "lookup")
}

func TestParseLiterals(t *testing.T) {
	f := mustParse(t, `let m = {"a": 1, "b": [true, nil, "s"]}`)
	m := f.Top.Stmts[0].(*LetStmt).Value.(*MapLit)
	tester.Eq(t, len(m.Entries), 2)
	tester.Eq(t, m.Entries[0].Key, "a")
	xs := m.Entries[1].Val.(*ListLit)
	tester.Eq(t, len(xs.Elems), 3)
}

func TestParseCognitiveForms(t *testing.T) {
	src := `
goal "keep totals non-negative" check total >= 0
invariant balance >= 0
observe items
checkpoint "start"
expect count > 0 "no data"
let advice = reason "is this safe?"
`
	f := mustParse(t, src)

	goals := f.Goals()
	require.Len(t, goals, 1)
	require.Equal(t, "keep totals non-negative", goals[0].Description)
	require.Equal(t, "total >= 0", goals[0].CheckSrc)

	invs := f.Invariants()
	require.Equal(t, []string{"balance >= 0"}, invs)

	exp := f.Top.Stmts[4].(*ExpectStmt)
	require.Equal(t, "count > 0", exp.CondSrc)
	require.Equal(t, "no data", exp.Message)

	r := f.Top.Stmts[5].(*LetStmt).Value.(*ReasonExpr)
	require.Equal(t, "is this safe?", r.Question)
}

func TestGoalsCollectedInsideFunctions(t *testing.T) {
	f := mustParse(t, `
fn process() {
    goal "processed data stays sorted" check sorted
}
goal "top level"
`)
	goals := f.Goals()
	tester.Eq(t, len(goals), 2)
	tester.Eq(t, goals[0].Description, "processed data stays sorted")
	tester.Eq(t, goals[1].Description, "top level")
	tester.Eq(t, goals[1].CheckSrc, "")
}

func TestBlockIDsStable(t *testing.T) {
	src := "fn f() {\n  let a = 1\n}\nif true {\n  let b = 2\n}\n"
	a := mustParse(t, src)
	b := mustParse(t, src)
	var ids func(blk *Block) []int
	ids = func(blk *Block) []int {
		out := []int{blk.ID}
		for _, s := range blk.Stmts {
			switch t := s.(type) {
			case *FnStmt:
				out = append(out, ids(t.Body)...)
			case *IfStmt:
				out = append(out, ids(t.Then)...)
			}
		}
		return out
	}
	tester.Eq(t, ids(a.Top), ids(b.Top))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`let = 5`, "expected identifier"},
		{`1 +`, "expected expression"},
		{`expect x > 0`, "expected string as expect message"},
		{`"unterminated`, "unterminated string"},
		{`let x = 3 @ 4`, "unexpected character"},
		{`x + 1 = 2`, "invalid assignment target"},
	}
	for _, tc := range cases {
		_, err := Parse(tc.src)
		tester.ErrContains(t, err, tc.want)
	}
}

func TestIncompleteDetection(t *testing.T) {
	_, err := Parse("fn partial() {\n  let x = 1\n")
	tester.Err(t, err)
	tester.True(t, IsIncomplete(err), "unterminated block should read as incomplete")

	_, err = Parse("let x = ")
	tester.True(t, IsIncomplete(err))

	_, err = Parse("let = ")
	tester.False(t, IsIncomplete(err), "a real syntax error is not incomplete")
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("let a = 1\nlet b = $\n")
	pe, ok := err.(*ParseError)
	tester.True(t, ok)
	tester.Eq(t, pe.Line, 2)
	tester.Eq(t, pe.Col, 9)
}
