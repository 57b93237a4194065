package lang

// Node is any parsed syntax element.
type Node interface {
	Pos() Position
}

// Expr nodes evaluate to a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt nodes execute for effect.
type Stmt interface {
	Node
	stmtNode()
}

type NumberLit struct {
	P   Position
	Val float64
}

type StringLit struct {
	P   Position
	Val string
}

type BoolLit struct {
	P   Position
	Val bool
}

type NilLit struct {
	P Position
}

type Ident struct {
	P    Position
	Name string
}

type ListLit struct {
	P     Position
	Elems []Expr
}

// MapEntry is one "key": value pair of a map literal. Keys are string
// literals.
type MapEntry struct {
	Key string
	Val Expr
}

type MapLit struct {
	P       Position
	Entries []MapEntry
}

type UnaryExpr struct {
	P  Position
	Op TokenType // MINUS or BANG
	X  Expr
}

type BinaryExpr struct {
	P  Position
	Op TokenType
	X  Expr
	Y  Expr
}

type IndexExpr struct {
	P     Position
	X     Expr
	Index Expr
}

type CallExpr struct {
	P    Position
	Fn   Expr
	Args []Expr
}

// ReasonExpr is an explicit reasoning request: `reason "question"`. Its
// value is whatever the deliberation decides (nil under Continue).
type ReasonExpr struct {
	P        Position
	Question string
}

func (e *NumberLit) Pos() Position  { return e.P }
func (e *StringLit) Pos() Position  { return e.P }
func (e *BoolLit) Pos() Position    { return e.P }
func (e *NilLit) Pos() Position     { return e.P }
func (e *Ident) Pos() Position      { return e.P }
func (e *ListLit) Pos() Position    { return e.P }
func (e *MapLit) Pos() Position     { return e.P }
func (e *UnaryExpr) Pos() Position  { return e.P }
func (e *BinaryExpr) Pos() Position { return e.P }
func (e *IndexExpr) Pos() Position  { return e.P }
func (e *CallExpr) Pos() Position   { return e.P }
func (e *ReasonExpr) Pos() Position { return e.P }

func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NilLit) exprNode()     {}
func (*Ident) exprNode()      {}
func (*ListLit) exprNode()    {}
func (*MapLit) exprNode()     {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*IndexExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*ReasonExpr) exprNode() {}

// Block is a brace-delimited (or top-level) statement sequence. IDs are
// assigned by the parser, stable for a given source text, and referenced by
// checkpoint resume positions.
type Block struct {
	P     Position
	ID    int
	Stmts []Stmt
}

func (b *Block) Pos() Position { return b.P }

type LetStmt struct {
	P     Position
	Name  string
	Value Expr
}

// AssignStmt covers `x = e` and `xs[i] = e`; Target is an *Ident or an
// *IndexExpr.
type AssignStmt struct {
	P      Position
	Target Expr
	Value  Expr
}

type FnStmt struct {
	P      Position
	Name   string
	Params []string
	Body   *Block
}

type ReturnStmt struct {
	P     Position
	Value Expr // nil for bare return
}

type IfStmt struct {
	P    Position
	Cond Expr
	Then *Block
	Else *Block // nil when absent; else-if chains nest a single IfStmt
}

type WhileStmt struct {
	P    Position
	Cond Expr
	Body *Block
}

type ForStmt struct {
	P    Position
	Var  string
	Iter Expr
	Body *Block
}

// ExpectStmt is a soft runtime check: `expect cond "message"`. CondSrc is
// the source slice of the condition, recorded in observations.
type ExpectStmt struct {
	P       Position
	Cond    Expr
	CondSrc string
	Message string
}

// GoalStmt declares a monitored goal: `goal "description" check expr`.
// Check may be nil (description-only goals are advisory oracle context).
type GoalStmt struct {
	P           Position
	Description string
	Check       Expr
	CheckSrc    string
}

// InvariantStmt declares a hard constraint: `invariant expr`.
type InvariantStmt struct {
	P    Position
	Cond Expr
	Src  string
}

// ObserveStmt marks a variable as observed: `observe x`.
type ObserveStmt struct {
	P    Position
	Name string
}

// CheckpointStmt captures a manual checkpoint: `checkpoint "name"`.
type CheckpointStmt struct {
	P    Position
	Name string
}

type ExprStmt struct {
	P Position
	X Expr
}

func (s *LetStmt) Pos() Position        { return s.P }
func (s *AssignStmt) Pos() Position     { return s.P }
func (s *FnStmt) Pos() Position         { return s.P }
func (s *ReturnStmt) Pos() Position     { return s.P }
func (s *IfStmt) Pos() Position         { return s.P }
func (s *WhileStmt) Pos() Position      { return s.P }
func (s *ForStmt) Pos() Position        { return s.P }
func (s *ExpectStmt) Pos() Position     { return s.P }
func (s *GoalStmt) Pos() Position       { return s.P }
func (s *InvariantStmt) Pos() Position  { return s.P }
func (s *ObserveStmt) Pos() Position    { return s.P }
func (s *CheckpointStmt) Pos() Position { return s.P }
func (s *ExprStmt) Pos() Position       { return s.P }

func (*LetStmt) stmtNode()        {}
func (*AssignStmt) stmtNode()     {}
func (*FnStmt) stmtNode()         {}
func (*ReturnStmt) stmtNode()     {}
func (*IfStmt) stmtNode()         {}
func (*WhileStmt) stmtNode()      {}
func (*ForStmt) stmtNode()        {}
func (*ExpectStmt) stmtNode()     {}
func (*GoalStmt) stmtNode()       {}
func (*InvariantStmt) stmtNode()  {}
func (*ObserveStmt) stmtNode()    {}
func (*CheckpointStmt) stmtNode() {}
func (*ExprStmt) stmtNode()       {}

// File is a parsed source file.
type File struct {
	Source string
	Top    *Block
}

func (f *File) Pos() Position { return f.Top.Pos() }

// GoalDecl is the static form of a goal declaration, collected for the fix
// validator and the oracle payload.
type GoalDecl struct {
	Description string
	CheckSrc    string // empty for description-only goals
}

// Goals returns every goal declared anywhere in the file, in source order.
func (f *File) Goals() []GoalDecl {
	var out []GoalDecl
	walkStmts(f.Top, func(s Stmt) {
		if g, ok := s.(*GoalStmt); ok {
			out = append(out, GoalDecl{Description: g.Description, CheckSrc: g.CheckSrc})
		}
	})
	return out
}

// Invariants returns the source text of every invariant declared in the
// file, in source order.
func (f *File) Invariants() []string {
	var out []string
	walkStmts(f.Top, func(s Stmt) {
		if inv, ok := s.(*InvariantStmt); ok {
			out = append(out, inv.Src)
		}
	})
	return out
}

func walkStmts(b *Block, fn func(Stmt)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		fn(s)
		switch t := s.(type) {
		case *FnStmt:
			walkStmts(t.Body, fn)
		case *IfStmt:
			walkStmts(t.Then, fn)
			walkStmts(t.Else, fn)
		case *WhileStmt:
			walkStmts(t.Body, fn)
		case *ForStmt:
			walkStmts(t.Body, fn)
		}
	}
}
