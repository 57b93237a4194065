package lang

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	src    string
	pos    int // byte offset of next rune
	line   int
	col    int
	tokens []Token
}

// lex tokenizes src. Comments run from '#' to end of line. Runs of newlines
// collapse into a single NEWLINE token; the parser treats newlines as
// statement terminators and skips them inside bracketed constructs.
func lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == NEWLINE && len(l.tokens) > 0 && l.tokens[len(l.tokens)-1].Type == NEWLINE {
			continue
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}

func (l *lexer) errf(pos Position, format string, args ...any) error {
	return &ParseError{Line: pos.Line, Col: pos.Col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) next() (Token, error) {
	// Skip spaces, tabs, carriage returns, and comments.
	for {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			l.advance()
			continue
		}
		if r == '#' {
			for l.peek() != '\n' && l.peek() != 0 {
				l.advance()
			}
			continue
		}
		break
	}

	start := l.pos
	pos := Position{Line: l.line, Col: l.col}
	mk := func(t TokenType) Token {
		return Token{Type: t, Lexeme: l.src[start:l.pos], Pos: pos, Offset: start, End: l.pos}
	}

	r := l.peek()
	switch {
	case r == 0:
		return mk(EOF), nil
	case r == '\n':
		l.advance()
		return mk(NEWLINE), nil
	case r == '(':
		l.advance()
		return mk(LPAREN), nil
	case r == ')':
		l.advance()
		return mk(RPAREN), nil
	case r == '[':
		l.advance()
		return mk(LBRACKET), nil
	case r == ']':
		l.advance()
		return mk(RBRACKET), nil
	case r == '{':
		l.advance()
		return mk(LBRACE), nil
	case r == '}':
		l.advance()
		return mk(RBRACE), nil
	case r == ',':
		l.advance()
		return mk(COMMA), nil
	case r == ':':
		l.advance()
		return mk(COLON), nil
	case r == ';':
		l.advance()
		return mk(SEMICOLON), nil
	case r == '+':
		l.advance()
		return mk(PLUS), nil
	case r == '-':
		l.advance()
		return mk(MINUS), nil
	case r == '*':
		l.advance()
		return mk(STAR), nil
	case r == '/':
		l.advance()
		return mk(SLASH), nil
	case r == '%':
		l.advance()
		return mk(PERCENT), nil
	case r == '=':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return mk(EQ), nil
		}
		return mk(ASSIGN), nil
	case r == '!':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return mk(NEQ), nil
		}
		return mk(BANG), nil
	case r == '<':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return mk(LE), nil
		}
		return mk(LT), nil
	case r == '>':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return mk(GE), nil
		}
		return mk(GT), nil
	case r == '&':
		l.advance()
		if l.peek() != '&' {
			return Token{}, l.errf(pos, "unexpected character '&'")
		}
		l.advance()
		return mk(ANDAND), nil
	case r == '|':
		l.advance()
		if l.peek() != '|' {
			return Token{}, l.errf(pos, "unexpected character '|'")
		}
		l.advance()
		return mk(OROR), nil
	case r == '"':
		return l.lexString(pos, start)
	case unicode.IsDigit(r):
		return l.lexNumber(pos, start)
	case r == '_' || unicode.IsLetter(r):
		return l.lexIdent(pos, start), nil
	default:
		return Token{}, l.errf(pos, "unexpected character %q", r)
	}
}

func (l *lexer) lexString(pos Position, start int) (Token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		r := l.peek()
		switch r {
		case 0, '\n':
			return Token{}, l.errf(pos, "unterminated string")
		case '"':
			l.advance()
			return Token{Type: STRING, Lexeme: l.src[start:l.pos], Str: b.String(), Pos: pos, Offset: start, End: l.pos}, nil
		case '\\':
			l.advance()
			esc := l.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return Token{}, l.errf(pos, "unknown escape '\\%c'", esc)
			}
		default:
			b.WriteRune(l.advance())
		}
	}
}

func (l *lexer) lexNumber(pos Position, start int) (Token, error) {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		l.advance()
		if !unicode.IsDigit(l.peek()) {
			return Token{}, l.errf(pos, "malformed number")
		}
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	lit := l.src[start:l.pos]
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Token{}, l.errf(pos, "malformed number %q", lit)
	}
	return Token{Type: NUMBER, Lexeme: lit, Num: f, Pos: pos, Offset: start, End: l.pos}, nil
}

func (l *lexer) lexIdent(pos Position, start int) Token {
	for {
		r := l.peek()
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			l.advance()
			continue
		}
		break
	}
	lit := l.src[start:l.pos]
	typ := IDENT
	if kw, ok := keywords[lit]; ok {
		typ = kw
	}
	return Token{Type: typ, Lexeme: lit, Pos: pos, Offset: start, End: l.pos}
}
