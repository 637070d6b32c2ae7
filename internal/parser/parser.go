package parser

import (
	"github.com/tinyrange/minicc/internal/lexer"
	"github.com/tinyrange/minicc/internal/unit"
)

// Parser turns tokens into typed trees, one function at a time. Symbols
// are declared into the context's table as they are met.
type Parser struct {
	lx  *lexer.Lexer
	tok lexer.Token
	ctx *unit.Context
}

func New(src string, ctx *unit.Context) *Parser {
	p := &Parser{lx: lexer.New(src), ctx: ctx}
	p.next()
	return p
}

func (p *Parser) next() {
	p.tok = p.lx.Next()
	p.ctx.Line = p.tok.Line
}

// peek returns the token after the current one without consuming it.
func (p *Parser) peek() (lexer.Token, error) {
	t := p.lx.Next()
	if err := p.lx.Reject(t); err != nil {
		return t, p.ctx.Wrap(err)
	}
	return t, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return p.ctx.Errorf(format, args...)
}

// unexpected reports the current token as out of place.
func (p *Parser) unexpected() error {
	if p.tok.Type == lexer.ILLEGAL {
		if len([]rune(p.tok.Lex)) == 1 {
			return p.errorf("unrecognised character %q", p.tok.Lex)
		}
		return p.errorf("%s", p.tok.Lex)
	}
	return p.errorf("syntax error, unexpected %v", p.tok.Type)
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if !p.tok.Is(tt) {
		if p.tok.Type == lexer.ILLEGAL {
			return lexer.Token{}, p.unexpected()
		}
		return lexer.Token{}, p.errorf("expected %v, got %v", tt, p.tok.Type)
	}
	t := p.tok
	p.next()
	return t, nil
}
