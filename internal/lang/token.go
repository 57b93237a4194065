// Package lang contains the lexer, parser, and AST for Cogni source files.
// Parsing produces a *File of typed nodes with positions; the evaluator and
// the fix validator are the only consumers.
package lang

import "fmt"

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL
	NEWLINE

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	COMMA
	COLON
	SEMICOLON

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	ASSIGN
	EQ
	NEQ
	LT
	LE
	GT
	GE
	BANG
	ANDAND
	OROR

	// Literals & identifiers
	IDENT
	NUMBER
	STRING

	// Keywords
	LET
	FN
	RETURN
	IF
	ELSE
	WHILE
	FOR
	IN
	TRUE
	FALSE
	NIL
	EXPECT
	GOAL
	CHECK
	INVARIANT
	OBSERVE
	CHECKPOINT
	REASON
)

var tokenNames = map[TokenType]string{
	EOF:        "end of input",
	ILLEGAL:    "illegal token",
	NEWLINE:    "newline",
	LPAREN:     "'('",
	RPAREN:     "')'",
	LBRACKET:   "'['",
	RBRACKET:   "']'",
	LBRACE:     "'{'",
	RBRACE:     "'}'",
	COMMA:      "','",
	COLON:      "':'",
	SEMICOLON:  "';'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	STAR:       "'*'",
	SLASH:      "'/'",
	PERCENT:    "'%'",
	ASSIGN:     "'='",
	EQ:         "'=='",
	NEQ:        "'!='",
	LT:         "'<'",
	LE:         "'<='",
	GT:         "'>'",
	GE:         "'>='",
	BANG:       "'!'",
	ANDAND:     "'&&'",
	OROR:       "'||'",
	IDENT:      "identifier",
	NUMBER:     "number",
	STRING:     "string",
	LET:        "'let'",
	FN:         "'fn'",
	RETURN:     "'return'",
	IF:         "'if'",
	ELSE:       "'else'",
	WHILE:      "'while'",
	FOR:        "'for'",
	IN:         "'in'",
	TRUE:       "'true'",
	FALSE:      "'false'",
	NIL:        "'nil'",
	EXPECT:     "'expect'",
	GOAL:       "'goal'",
	CHECK:      "'check'",
	INVARIANT:  "'invariant'",
	OBSERVE:    "'observe'",
	CHECKPOINT: "'checkpoint'",
	REASON:     "'reason'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"let":        LET,
	"fn":         FN,
	"return":     RETURN,
	"if":         IF,
	"else":       ELSE,
	"while":      WHILE,
	"for":        FOR,
	"in":         IN,
	"true":       TRUE,
	"false":      FALSE,
	"nil":        NIL,
	"expect":     EXPECT,
	"goal":       GOAL,
	"check":      CHECK,
	"invariant":  INVARIANT,
	"observe":    OBSERVE,
	"checkpoint": CHECKPOINT,
	"reason":     REASON,
}

// Position is a 1-based source location.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is a lexical token. Offset and End index into the source text and
// are used to recover expression source slices for observations and goal
// payloads.
type Token struct {
	Type   TokenType
	Lexeme string
	Num    float64 // valid when Type == NUMBER
	Str    string  // decoded literal when Type == STRING
	Pos    Position
	Offset int
	End    int
}
