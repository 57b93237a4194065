package lang

import "fmt"

// ParseError is the first error encountered while lexing or parsing.
// Incomplete marks errors caused by running out of input, which REPLs use
// to keep reading instead of reporting.
type ParseError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a ParseError caused by truncated
// input (more lines could complete the program).
func IsIncomplete(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Incomplete
}

// Parse lexes and parses src into a File. The returned error is always a
// *ParseError.
func Parse(src string) (*File, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens}
	top, err := p.parseTop()
	if err != nil {
		return nil, err
	}
	return &File{Source: src, Top: top}, nil
}

type parser struct {
	src     string
	tokens  []Token
	i       int
	blockID int
}

func (p *parser) peek() Token { return p.tokens[p.i] }
func (p *parser) prev() Token { return p.tokens[p.i-1] }
func (p *parser) atEOF() bool { return p.peek().Type == EOF }

func (p *parser) advance() Token {
	t := p.tokens[p.i]
	if t.Type != EOF {
		p.i++
	}
	return t
}

func (p *parser) check(t TokenType) bool { return p.peek().Type == t }

func (p *parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(t TokenType, what string) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return Token{}, p.errHere("expected %s %s, found %s", t, what, p.peek().Type)
}

func (p *parser) errHere(format string, args ...any) error {
	tok := p.peek()
	return &ParseError{
		Line:       tok.Pos.Line,
		Col:        tok.Pos.Col,
		Msg:        fmt.Sprintf(format, args...),
		Incomplete: tok.Type == EOF,
	}
}

func (p *parser) skipNewlines() {
	for p.check(NEWLINE) || p.check(SEMICOLON) {
		p.advance()
	}
}

// endStatement consumes a statement terminator: newline, semicolon, or a
// position where the enclosing construct ends.
func (p *parser) endStatement() error {
	switch p.peek().Type {
	case NEWLINE, SEMICOLON:
		p.advance()
		return nil
	case RBRACE, EOF:
		return nil
	default:
		return p.errHere("expected end of statement, found %s", p.peek().Type)
	}
}

func (p *parser) nextBlockID() int {
	id := p.blockID
	p.blockID++
	return id
}

func (p *parser) parseTop() (*Block, error) {
	b := &Block{P: Position{Line: 1, Col: 1}, ID: p.nextBlockID()}
	p.skipNewlines()
	for !p.atEOF() {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	return b, nil
}

func (p *parser) parseBlock() (*Block, error) {
	lb, err := p.expect(LBRACE, "to open block")
	if err != nil {
		return nil, err
	}
	b := &Block{P: lb.Pos, ID: p.nextBlockID()}
	p.skipNewlines()
	for !p.check(RBRACE) {
		if p.atEOF() {
			return nil, p.errHere("unterminated block")
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	p.advance() // consume '}'
	return b, nil
}

// exprSrc returns the source slice covered from start offset to the end of
// the previously consumed token.
func (p *parser) exprSrc(start int) string {
	end := p.prev().End
	if start >= end || end > len(p.src) {
		return ""
	}
	return p.src[start:end]
}

func (p *parser) parseStmt() (Stmt, error) {
	switch p.peek().Type {
	case LET:
		return p.parseLet()
	case FN:
		return p.parseFn()
	case RETURN:
		return p.parseReturn()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case FOR:
		return p.parseFor()
	case EXPECT:
		return p.parseExpect()
	case GOAL:
		return p.parseGoal()
	case INVARIANT:
		return p.parseInvariant()
	case OBSERVE:
		return p.parseObserve()
	case CHECKPOINT:
		return p.parseCheckpoint()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseLet() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENT, "after 'let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN, "in let binding"); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &LetStmt{P: kw.Pos, Name: name.Lexeme, Value: v}, nil
}

func (p *parser) parseFn() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENT, "after 'fn'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN, "after function name"); err != nil {
		return nil, err
	}
	var params []string
	p.skipNewlines()
	for !p.check(RPAREN) {
		param, err := p.expect(IDENT, "in parameter list")
		if err != nil {
			return nil, err
		}
		params = append(params, param.Lexeme)
		p.skipNewlines()
		if !p.match(COMMA) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.expect(RPAREN, "to close parameter list"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FnStmt{P: kw.Pos, Name: name.Lexeme, Params: params, Body: body}, nil
}

func (p *parser) parseReturn() (Stmt, error) {
	kw := p.advance()
	s := &ReturnStmt{P: kw.Pos}
	switch p.peek().Type {
	case NEWLINE, SEMICOLON, RBRACE, EOF:
		return s, nil
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	s.Value = v
	return s, nil
}

func (p *parser) parseIf() (Stmt, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &IfStmt{P: kw.Pos, Cond: cond, Then: then}
	if p.match(ELSE) {
		if p.check(IF) {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			wrap := &Block{P: nested.Pos(), ID: p.nextBlockID(), Stmts: []Stmt{nested}}
			s.Else = wrap
		} else {
			els, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			s.Else = els
		}
	}
	return s, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{P: kw.Pos, Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENT, "after 'for'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(IN, "in for loop"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{P: kw.Pos, Var: name.Lexeme, Iter: iter, Body: body}, nil
}

func (p *parser) parseExpect() (Stmt, error) {
	kw := p.advance()
	start := p.peek().Offset
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	condSrc := p.exprSrc(start)
	msg, err := p.expect(STRING, "as expect message")
	if err != nil {
		return nil, err
	}
	return &ExpectStmt{P: kw.Pos, Cond: cond, CondSrc: condSrc, Message: msg.Str}, nil
}

func (p *parser) parseGoal() (Stmt, error) {
	kw := p.advance()
	desc, err := p.expect(STRING, "as goal description")
	if err != nil {
		return nil, err
	}
	s := &GoalStmt{P: kw.Pos, Description: desc.Str}
	if p.match(CHECK) {
		start := p.peek().Offset
		check, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Check = check
		s.CheckSrc = p.exprSrc(start)
	}
	return s, nil
}

func (p *parser) parseInvariant() (Stmt, error) {
	kw := p.advance()
	start := p.peek().Offset
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &InvariantStmt{P: kw.Pos, Cond: cond, Src: p.exprSrc(start)}, nil
}

func (p *parser) parseObserve() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(IDENT, "after 'observe'")
	if err != nil {
		return nil, err
	}
	return &ObserveStmt{P: kw.Pos, Name: name.Lexeme}, nil
}

func (p *parser) parseCheckpoint() (Stmt, error) {
	kw := p.advance()
	name, err := p.expect(STRING, "as checkpoint name")
	if err != nil {
		return nil, err
	}
	return &CheckpointStmt{P: kw.Pos, Name: name.Str}, nil
}

func (p *parser) parseExprStmt() (Stmt, error) {
	pos := p.peek().Pos
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.check(ASSIGN) {
		switch x.(type) {
		case *Ident, *IndexExpr:
		default:
			return nil, p.errHere("invalid assignment target")
		}
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{P: pos, Target: x, Value: v}, nil
	}
	return &ExprStmt{P: pos, X: x}, nil
}

// Precedence levels, lowest first.
const (
	precNone = iota
	precOr
	precAnd
	precEquality
	precCompare
	precTerm
	precFactor
	precUnary
)

func precedenceOf(t TokenType) int {
	switch t {
	case OROR:
		return precOr
	case ANDAND:
		return precAnd
	case EQ, NEQ:
		return precEquality
	case LT, LE, GT, GE:
		return precCompare
	case PLUS, MINUS:
		return precTerm
	case STAR, SLASH, PERCENT:
		return precFactor
	default:
		return precNone
	}
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseBinary(precOr)
}

func (p *parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().Type
		prec := precedenceOf(op)
		if prec < minPrec {
			return left, nil
		}
		opTok := p.advance()
		p.skipNewlinesInGroup()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: opTok.Pos, Op: op, X: left, Y: right}
	}
}

// skipNewlinesInGroup allows an expression to continue on the next line
// after a binary operator, comma, or opening bracket.
func (p *parser) skipNewlinesInGroup() {
	for p.check(NEWLINE) {
		p.advance()
	}
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.peek().Type {
	case MINUS, BANG:
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{P: op.Pos, Op: op.Type, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case LPAREN:
			lp := p.advance()
			var args []Expr
			p.skipNewlinesInGroup()
			for !p.check(RPAREN) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				p.skipNewlinesInGroup()
				if !p.match(COMMA) {
					break
				}
				p.skipNewlinesInGroup()
			}
			if _, err := p.expect(RPAREN, "to close call"); err != nil {
				return nil, err
			}
			x = &CallExpr{P: lp.Pos, Fn: x, Args: args}
		case LBRACKET:
			lb := p.advance()
			p.skipNewlinesInGroup()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.skipNewlinesInGroup()
			if _, err := p.expect(RBRACKET, "to close index"); err != nil {
				return nil, err
			}
			x = &IndexExpr{P: lb.Pos, X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		return &NumberLit{P: tok.Pos, Val: tok.Num}, nil
	case STRING:
		p.advance()
		return &StringLit{P: tok.Pos, Val: tok.Str}, nil
	case TRUE:
		p.advance()
		return &BoolLit{P: tok.Pos, Val: true}, nil
	case FALSE:
		p.advance()
		return &BoolLit{P: tok.Pos, Val: false}, nil
	case NIL:
		p.advance()
		return &NilLit{P: tok.Pos}, nil
	case IDENT:
		p.advance()
		return &Ident{P: tok.Pos, Name: tok.Lexeme}, nil
	case REASON:
		p.advance()
		q, err := p.expect(STRING, "as reasoning question")
		if err != nil {
			return nil, err
		}
		return &ReasonExpr{P: tok.Pos, Question: q.Str}, nil
	case LPAREN:
		p.advance()
		p.skipNewlinesInGroup()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipNewlinesInGroup()
		if _, err := p.expect(RPAREN, "to close group"); err != nil {
			return nil, err
		}
		return x, nil
	case LBRACKET:
		p.advance()
		lit := &ListLit{P: tok.Pos}
		p.skipNewlinesInGroup()
		for !p.check(RBRACKET) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lit.Elems = append(lit.Elems, e)
			p.skipNewlinesInGroup()
			if !p.match(COMMA) {
				break
			}
			p.skipNewlinesInGroup()
		}
		if _, err := p.expect(RBRACKET, "to close list"); err != nil {
			return nil, err
		}
		return lit, nil
	case LBRACE:
		p.advance()
		lit := &MapLit{P: tok.Pos}
		p.skipNewlinesInGroup()
		for !p.check(RBRACE) {
			key, err := p.expect(STRING, "as map key")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(COLON, "after map key"); err != nil {
				return nil, err
			}
			p.skipNewlinesInGroup()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lit.Entries = append(lit.Entries, MapEntry{Key: key.Str, Val: v})
			p.skipNewlinesInGroup()
			if !p.match(COMMA) {
				break
			}
			p.skipNewlinesInGroup()
		}
		if _, err := p.expect(RBRACE, "to close map"); err != nil {
			return nil, err
		}
		return lit, nil
	default:
		return nil, p.errHere("expected expression, found %s", tok.Type)
	}
}
