package parser

import (
	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/lexer"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
)

// NextFunction parses global declarations up to and including the next
// function definition and returns the function's tree. It returns nil
// once the input is exhausted.
func (p *Parser) NextFunction() (*ast.Node, error) {
	for p.tok.Type != lexer.EOF {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if p.tok.Type == lexer.LPAREN {
			fn, err := p.function(typ, name.Lex)
			if err != nil {
				return nil, err
			}
			if fn != nil {
				return fn, nil
			}
			continue
		}
		if err := p.varDeclarations(typ, name.Lex, symtab.Global); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (p *Parser) parseType() (types.Type, error) {
	var typ types.Type
	switch p.tok.Type {
	case lexer.KW_VOID:
		typ = types.Void
	case lexer.KW_CHAR:
		typ = types.Char
	case lexer.KW_INT:
		typ = types.Int
	case lexer.KW_LONG:
		typ = types.Long
	default:
		return types.None, p.errorf("illegal type, token %v", p.tok.Type)
	}
	p.next()
	if p.tok.Type != lexer.STAR {
		return typ, nil
	}
	if typ == types.Void {
		return types.None, p.errorf("void pointers are not supported")
	}
	ptr, err := types.PointerTo(typ)
	if err != nil {
		return types.None, p.ctx.Wrap(err)
	}
	p.next()
	if p.tok.Type == lexer.STAR {
		return types.None, p.errorf("pointers to pointers are not supported")
	}
	return ptr, nil
}

// varDeclarations declares name and any further comma separated names
// of the same type, then consumes the closing semicolon.
func (p *Parser) varDeclarations(typ types.Type, name string, class symtab.Class) error {
	for {
		if err := p.declareVar(typ, name, class); err != nil {
			return err
		}
		if p.tok.Type != lexer.COMMA {
			break
		}
		p.next()
		t, err := p.expect(lexer.IDENT)
		if err != nil {
			return err
		}
		name = t.Lex
	}
	_, err := p.expect(lexer.SEMI)
	return err
}

func (p *Parser) declareVar(typ types.Type, name string, class symtab.Class) error {
	if typ == types.Void {
		return p.errorf("variable %s can't be void", name)
	}
	if class == symtab.Global {
		if _, ok := p.ctx.Syms.FindGlobal(name); ok {
			return p.errorf("duplicate global declaration %s", name)
		}
	}
	kind, nelems := symtab.Variable, 1
	if p.tok.Type == lexer.LBRACK {
		p.next()
		size, err := p.expect(lexer.INT)
		if err != nil {
			return err
		}
		if size.Value <= 0 {
			return p.errorf("array size must be positive")
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return err
		}
		if typ.IsPtr() {
			return p.errorf("arrays of pointers are not supported")
		}
		if typ, err = types.PointerTo(typ); err != nil {
			return p.ctx.Wrap(err)
		}
		kind, nelems = symtab.Array, int(size.Value)
	}
	var err error
	if class == symtab.Global {
		_, err = p.ctx.Syms.AddGlobal(name, typ, kind, 0, nelems)
	} else {
		_, err = p.ctx.Syms.AddLocal(name, typ, kind, nelems)
	}
	return p.ctx.Wrap(err)
}

// function parses a function prototype or definition after its name.
// Prototypes return a nil tree.
func (p *Parser) function(typ types.Type, name string) (*ast.Node, error) {
	syms, line := p.ctx.Syms, p.ctx.Line
	id, declared := syms.FindGlobal(name)
	if declared {
		sym := syms.Get(id)
		if sym.Kind != symtab.Function {
			return nil, p.errorf("%s redeclared as a function", name)
		}
		if sym.Type != typ {
			return nil, p.errorf("conflicting types for %s", name)
		}
	} else {
		var err error
		if id, err = syms.AddGlobal(name, typ, symtab.Function, p.ctx.NewLabel(), 0); err != nil {
			return nil, p.ctx.Wrap(err)
		}
	}

	p.next()
	nparams, err := p.params()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	sym := syms.Get(id)
	if declared && sym.NElems != nparams {
		return nil, p.errorf("function %s declared with %d parameters, now %d", name, sym.NElems, nparams)
	}
	sym.NElems = nparams

	if p.tok.Type == lexer.SEMI {
		p.next()
		syms.FreeLocals()
		return nil, nil
	}

	if sym.Defined {
		return nil, p.errorf("function %s is already defined", name)
	}
	sym.Defined = true
	p.ctx.FuncID = id
	body, err := p.CompoundStatement()
	if err != nil {
		return nil, err
	}
	if typ != types.Void {
		last := body
		if last != nil && last.Op == ast.GLUE {
			last = last.Right
		}
		if last == nil || last.Op != ast.RETURN {
			return nil, p.errorf("no return for function with non-void type")
		}
	}
	fn := ast.NewSymbol(ast.FUNCTION, typ, body, id)
	fn.Line = line
	return fn, nil
}

// params declares the parameter list and returns its length. The
// current token is the one after the opening parenthesis.
func (p *Parser) params() (int, error) {
	if p.tok.Type == lexer.KW_VOID {
		nt, err := p.peek()
		if err != nil {
			return 0, err
		}
		if nt.Type == lexer.RPAREN {
			p.next()
			return 0, nil
		}
	}
	n := 0
	for p.tok.Type != lexer.RPAREN {
		typ, err := p.parseType()
		if err != nil {
			return 0, err
		}
		if typ == types.Void {
			return 0, p.errorf("parameter can't be void")
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return 0, err
		}
		if _, err := p.ctx.Syms.AddParam(name.Lex, typ); err != nil {
			return 0, p.ctx.Wrap(err)
		}
		n++
		switch p.tok.Type {
		case lexer.COMMA:
			p.next()
		case lexer.RPAREN:
		default:
			return 0, p.unexpected()
		}
	}
	return n, nil
}
