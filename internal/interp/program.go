package interp

import (
	"cogni/internal/cognition"
	"cogni/internal/lang"
)

// Program is a parsed source with its cognitive declarations indexed. Goals
// and Invariants are fixed at parse time; only the orchestrator may replace
// a Program, and then only with one carrying identical goals.
type Program struct {
	File       *lang.File
	Source     string
	Goals      []cognition.Goal
	Invariants []string

	// Observed variables: declared with `observe` or referenced by a goal
	// check. Bindings to these are observation points.
	Observed map[string]struct{}
}

// Load parses source and indexes its declarations.
func Load(src string) (*Program, error) {
	file, err := lang.Parse(src)
	if err != nil {
		return nil, err
	}
	p := &Program{
		File:       file,
		Source:     src,
		Invariants: file.Invariants(),
		Observed:   map[string]struct{}{},
	}
	for _, g := range file.Goals() {
		p.Goals = append(p.Goals, cognition.Goal{Description: g.Description, CheckSrc: g.CheckSrc})
	}
	collectObserved(file.Top, p.Observed)
	return p, nil
}

// ExtractGoals is the GoalExtractor used by the fix validator: parse the
// proposed text and report its goal declarations.
func ExtractGoals(src string) ([]cognition.Goal, error) {
	file, err := lang.Parse(src)
	if err != nil {
		return nil, err
	}
	var goals []cognition.Goal
	for _, g := range file.Goals() {
		goals = append(goals, cognition.Goal{Description: g.Description, CheckSrc: g.CheckSrc})
	}
	return goals, nil
}

func collectObserved(b *lang.Block, out map[string]struct{}) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch t := s.(type) {
		case *lang.ObserveStmt:
			out[t.Name] = struct{}{}
		case *lang.GoalStmt:
			collectIdents(t.Check, out)
		case *lang.FnStmt:
			collectObserved(t.Body, out)
		case *lang.IfStmt:
			collectObserved(t.Then, out)
			collectObserved(t.Else, out)
		case *lang.WhileStmt:
			collectObserved(t.Body, out)
		case *lang.ForStmt:
			collectObserved(t.Body, out)
		}
	}
}

func collectIdents(x lang.Expr, out map[string]struct{}) {
	switch t := x.(type) {
	case nil:
	case *lang.Ident:
		out[t.Name] = struct{}{}
	case *lang.ListLit:
		for _, e := range t.Elems {
			collectIdents(e, out)
		}
	case *lang.MapLit:
		for _, e := range t.Entries {
			collectIdents(e.Val, out)
		}
	case *lang.UnaryExpr:
		collectIdents(t.X, out)
	case *lang.BinaryExpr:
		collectIdents(t.X, out)
		collectIdents(t.Y, out)
	case *lang.IndexExpr:
		collectIdents(t.X, out)
		collectIdents(t.Index, out)
	case *lang.CallExpr:
		collectIdents(t.Fn, out)
		for _, a := range t.Args {
			collectIdents(a, out)
		}
	}
}
