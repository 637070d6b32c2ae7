package lexer

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrRejectTwice is returned when a token is pushed back while another
// one is still waiting to be read.
var ErrRejectTwice = errors.New("can't reject token twice")

type Lexer struct {
	src  []rune
	i    int
	ch   rune
	line int
	col  int

	rejected *Token
}

func New(src string) *Lexer {
	l := &Lexer{src: []rune(src), line: 1}
	l.read()
	return l
}

func (l *Lexer) read() {
	if l.i >= len(l.src) {
		l.ch = 0
		return
	}
	l.ch = l.src[l.i]
	l.i++
	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peek() rune {
	if l.i >= len(l.src) {
		return 0
	}
	return l.src[l.i]
}

// Reject pushes t back so the next call to Next returns it again.
func (l *Lexer) Reject(t Token) error {
	if l.rejected != nil {
		return ErrRejectTwice
	}
	l.rejected = &t
	return nil
}

// one returns a token for the single character at the cursor.
func (l *Lexer) one(tok Token, tt TokenType) Token {
	tok.Type, tok.Lex = tt, string(l.ch)
	l.read()
	return tok
}

// two returns a token for a character optionally followed by next,
// picking long when the pair is present.
func (l *Lexer) two(tok Token, next rune, short, long TokenType) Token {
	first := l.ch
	l.read()
	if l.ch == next {
		l.read()
		tok.Type, tok.Lex = long, string([]rune{first, next})
		return tok
	}
	tok.Type, tok.Lex = short, string(first)
	return tok
}

func (l *Lexer) Next() Token {
	if l.rejected != nil {
		t := *l.rejected
		l.rejected = nil
		return t
	}
	// skip spaces and comments
	for {
		for unicode.IsSpace(l.ch) {
			l.read()
		}
		if l.ch == '/' && l.peek() == '/' {
			for l.ch != 0 && l.ch != '\n' {
				l.read()
			}
			continue
		}
		if l.ch == '/' && l.peek() == '*' {
			l.read()
			l.read()
			for l.ch != 0 {
				if l.ch == '*' && l.peek() == '/' {
					l.read()
					l.read()
					break
				}
				l.read()
			}
			continue
		}
		break
	}
	tok := Token{Line: l.line, Col: l.col}
	switch ch := l.ch; ch {
	case 0:
		tok.Type = EOF
	case '(':
		return l.one(tok, LPAREN)
	case ')':
		return l.one(tok, RPAREN)
	case '{':
		return l.one(tok, LBRACE)
	case '}':
		return l.one(tok, RBRACE)
	case '[':
		return l.one(tok, LBRACK)
	case ']':
		return l.one(tok, RBRACK)
	case ';':
		return l.one(tok, SEMI)
	case ',':
		return l.one(tok, COMMA)
	case '*':
		return l.one(tok, STAR)
	case '/':
		return l.one(tok, SLASH)
	case '^':
		return l.one(tok, CARET)
	case '~':
		return l.one(tok, TILDE)
	case '=':
		return l.two(tok, '=', ASSIGN, EQEQ)
	case '!':
		return l.two(tok, '=', BANG, NEQ)
	case '+':
		return l.two(tok, '+', PLUS, INC)
	case '-':
		return l.two(tok, '-', MINUS, DEC)
	case '&':
		return l.two(tok, '&', AMP, ANDAND)
	case '|':
		return l.two(tok, '|', PIPE, OROR)
	case '<':
		if l.peek() == '<' {
			return l.two(tok, '<', LT, SHL)
		}
		return l.two(tok, '=', LT, LE)
	case '>':
		if l.peek() == '>' {
			return l.two(tok, '>', GT, SHR)
		}
		return l.two(tok, '=', GT, GE)
	case '\'':
		return l.charLit(tok)
	case '"':
		return l.stringLit(tok)
	default:
		if unicode.IsLetter(ch) || ch == '_' {
			ident := []rune{ch}
			l.read()
			for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
				ident = append(ident, l.ch)
				l.read()
			}
			tok.Lex = string(ident)
			tok.Type = IDENT
			if kw, ok := keywords[tok.Lex]; ok {
				tok.Type = kw
			}
		} else if unicode.IsDigit(ch) {
			num := []rune{ch}
			l.read()
			for unicode.IsDigit(l.ch) {
				num = append(num, l.ch)
				l.read()
			}
			tok.Lex = string(num)
			v, err := strconv.ParseInt(tok.Lex, 10, 64)
			if err != nil {
				tok.Type, tok.Lex = ILLEGAL, "integer literal out of range"
				return tok
			}
			tok.Type, tok.Value = INT, v
		} else {
			return l.one(tok, ILLEGAL)
		}
	}
	return tok
}

// escape reads one possibly escaped character of a literal.
func (l *Lexer) escape() (rune, bool) {
	c := l.ch
	l.read()
	if c != '\\' {
		return c, true
	}
	c = l.ch
	l.read()
	switch c {
	case 'a':
		return '\a', true
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case 'v':
		return '\v', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return c, true
	}
	return c, false
}

func (l *Lexer) charLit(tok Token) Token {
	l.read()
	if l.ch == 0 || l.ch == '\'' {
		tok.Type, tok.Lex = ILLEGAL, "empty character literal"
		return tok
	}
	c, ok := l.escape()
	if !ok {
		tok.Type, tok.Lex = ILLEGAL, "unknown escape sequence"
		return tok
	}
	if l.ch != '\'' {
		tok.Type, tok.Lex = ILLEGAL, "expected ' to close character literal"
		return tok
	}
	l.read()
	tok.Type, tok.Lex, tok.Value = INT, string(c), int64(c)
	return tok
}

func (l *Lexer) stringLit(tok Token) Token {
	l.read()
	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			tok.Type, tok.Lex = ILLEGAL, "unterminated string literal"
			return tok
		}
		c, ok := l.escape()
		if !ok {
			tok.Type, tok.Lex = ILLEGAL, "unknown escape sequence"
			return tok
		}
		sb.WriteRune(c)
	}
	l.read()
	tok.Type, tok.Lex = STRING, sb.String()
	return tok
}
