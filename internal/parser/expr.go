package parser

import (
	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/lexer"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
)

// Binding power of each binary operator, loosest first.
var precedence = map[lexer.TokenType]int{
	lexer.ASSIGN: 10,
	lexer.OROR:   20,
	lexer.ANDAND: 30,
	lexer.PIPE:   40,
	lexer.CARET:  50,
	lexer.AMP:    60,
	lexer.EQEQ:   70, lexer.NEQ: 70,
	lexer.LT: 80, lexer.GT: 80, lexer.LE: 80, lexer.GE: 80,
	lexer.SHL: 90, lexer.SHR: 90,
	lexer.PLUS: 100, lexer.MINUS: 100,
	lexer.STAR: 110, lexer.SLASH: 110,
}

var binOps = map[lexer.TokenType]ast.Op{
	lexer.ASSIGN: ast.ASSIGN,
	lexer.OROR:   ast.LOGOR,
	lexer.ANDAND: ast.LOGAND,
	lexer.PIPE:   ast.OR,
	lexer.CARET:  ast.XOR,
	lexer.AMP:    ast.AND,
	lexer.EQEQ:   ast.EQ,
	lexer.NEQ:    ast.NE,
	lexer.LT:     ast.LT,
	lexer.GT:     ast.GT,
	lexer.LE:     ast.LE,
	lexer.GE:     ast.GE,
	lexer.SHL:    ast.LSHIFT,
	lexer.SHR:    ast.RSHIFT,
	lexer.PLUS:   ast.ADD,
	lexer.MINUS:  ast.SUBTRACT,
	lexer.STAR:   ast.MULTIPLY,
	lexer.SLASH:  ast.DIVIDE,
}

func endsExpr(tt lexer.TokenType) bool {
	switch tt {
	case lexer.SEMI, lexer.RPAREN, lexer.RBRACK, lexer.COMMA:
		return true
	}
	return false
}

// BinExpr parses an expression whose operators all bind tighter than
// ptp. Assignment is the only right-associative operator.
func (p *Parser) BinExpr(ptp int) (*ast.Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	tt := p.tok.Type
	for !endsExpr(tt) {
		prec, ok := precedence[tt]
		if !ok || !(prec > ptp || (tt == lexer.ASSIGN && prec == ptp)) {
			break
		}
		p.next()
		right, err := p.BinExpr(prec)
		if err != nil {
			return nil, err
		}
		if left, err = p.binary(binOps[tt], left, right); err != nil {
			return nil, err
		}
		tt = p.tok.Type
	}
	left.RValue = true
	return left, nil
}

func (p *Parser) binary(op ast.Op, left, right *ast.Node) (*ast.Node, error) {
	if op == ast.ASSIGN {
		if left.Op != ast.IDENT && left.Op != ast.DEREF {
			return nil, p.errorf("can't assign to this expression")
		}
		// a parenthesised target comes back from BinExpr marked as a value
		left.RValue = false
		right.RValue = true
		_, rc, ok := types.Compatible(left.Type, right.Type, types.Assign)
		if !ok {
			return nil, p.errorf("incompatible expression in assignment")
		}
		value, err := ast.Convert(right, rc, left.Type)
		if err != nil {
			return nil, p.ctx.Wrap(err)
		}
		// the value is generated first, so it goes on the left
		return ast.New(ast.ASSIGN, left.Type, value, nil, left, 0), nil
	}

	left.RValue = true
	right.RValue = true
	mode := types.Binary
	if op == ast.ADD || op == ast.SUBTRACT {
		mode = types.Additive
	}
	lc, rc, ok := types.Compatible(left.Type, right.Type, mode)
	if !ok {
		return nil, p.errorf("incompatible types in binary expression")
	}
	lt, rt := left.Type, right.Type
	left, err := ast.Convert(left, lc, rt)
	if err != nil {
		return nil, p.ctx.Wrap(err)
	}
	right, err = ast.Convert(right, rc, lt)
	if err != nil {
		return nil, p.ctx.Wrap(err)
	}
	return ast.New(op, resultType(op, lt, rt), left, nil, right, 0), nil
}

func resultType(op ast.Op, lt, rt types.Type) types.Type {
	switch {
	case rt.IsPtr() && lt.IsInt():
		return rt
	case lt.IsPtr() && (ast.IsComparison(op) || op == ast.LOGAND || op == ast.LOGOR):
		return types.Int
	case lt.IsInt() && rt.Size() > lt.Size():
		return rt
	}
	return lt
}

func (p *Parser) prefix() (*ast.Node, error) {
	switch p.tok.Type {
	case lexer.AMP:
		p.next()
		n, err := p.prefix()
		if err != nil {
			return nil, err
		}
		if n.Op != ast.IDENT {
			return nil, p.errorf("& operator must be followed by an identifier")
		}
		if n.Type.IsPtr() {
			return nil, p.errorf("can't take the address of a pointer")
		}
		ptr, err := types.PointerTo(n.Type)
		if err != nil {
			return nil, p.ctx.Wrap(err)
		}
		return ast.NewSymbol(ast.ADDR, ptr, nil, n.ID), nil
	case lexer.STAR:
		p.next()
		n, err := p.prefix()
		if err != nil {
			return nil, err
		}
		if n.Op != ast.IDENT && n.Op != ast.DEREF {
			return nil, p.errorf("* operator must be followed by an identifier or *")
		}
		if !n.Type.IsPtr() {
			return nil, p.errorf("can't dereference a value of type %v", n.Type)
		}
		elem, err := types.ValueAt(n.Type)
		if err != nil {
			return nil, p.ctx.Wrap(err)
		}
		return ast.NewUnary(ast.DEREF, elem, n, 0), nil
	case lexer.MINUS, lexer.TILDE, lexer.BANG:
		op := map[lexer.TokenType]ast.Op{lexer.MINUS: ast.NEGATE, lexer.TILDE: ast.INVERT, lexer.BANG: ast.LOGNOT}[p.tok.Type]
		p.next()
		n, err := p.prefix()
		if err != nil {
			return nil, err
		}
		n.RValue = true
		return ast.NewUnary(op, n.Type, n, 0), nil
	case lexer.INC, lexer.DEC:
		op, lex := ast.PREINC, p.tok.Lex
		if p.tok.Type == lexer.DEC {
			op = ast.PREDEC
		}
		p.next()
		n, err := p.prefix()
		if err != nil {
			return nil, err
		}
		if n.Op != ast.IDENT {
			return nil, p.errorf("%s operator must be followed by an identifier", lex)
		}
		n.RValue = false
		return ast.NewUnary(op, n.Type, n, 0), nil
	}
	return p.primary()
}

func (p *Parser) primary() (*ast.Node, error) {
	switch p.tok.Type {
	case lexer.INT:
		v := p.tok.Value
		p.next()
		return ast.NewLeaf(ast.INTLIT, types.LiteralType(v), v), nil
	case lexer.STRING:
		label := p.ctx.AddString(p.tok.Lex)
		p.next()
		return ast.NewSymbol(ast.STRLIT, types.CharPtr, nil, label), nil
	case lexer.IDENT:
		return p.identifier()
	case lexer.LPAREN:
		p.next()
		n, err := p.BinExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, p.unexpected()
}

// identifier parses a variable reference, a call or an array element.
func (p *Parser) identifier() (*ast.Node, error) {
	nt, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch nt.Type {
	case lexer.LPAREN:
		return p.funcCall()
	case lexer.LBRACK:
		return p.arrayAccess()
	}

	name := p.tok.Lex
	id, ok := p.ctx.Syms.Find(name)
	if !ok {
		return nil, p.errorf("unknown variable %s", name)
	}
	sym := p.ctx.Syms.Get(id)
	p.next()
	switch sym.Kind {
	case symtab.Array:
		// an array name stands for the address of its first element
		n := ast.NewSymbol(ast.ADDR, sym.Type, nil, id)
		n.RValue = true
		return n, nil
	case symtab.Function:
		return nil, p.errorf("function %s used as a variable", name)
	}
	n := ast.NewSymbol(ast.IDENT, sym.Type, nil, id)
	switch p.tok.Type {
	case lexer.INC:
		p.next()
		return ast.NewUnary(ast.POSTINC, sym.Type, n, 0), nil
	case lexer.DEC:
		p.next()
		return ast.NewUnary(ast.POSTDEC, sym.Type, n, 0), nil
	}
	return n, nil
}

func (p *Parser) funcCall() (*ast.Node, error) {
	name := p.tok.Lex
	id, ok := p.ctx.Syms.Find(name)
	if !ok || p.ctx.Syms.Get(id).Kind != symtab.Function {
		return nil, p.errorf("undeclared function %s", name)
	}
	sym := p.ctx.Syms.Get(id)
	p.next()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	args, nargs, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if nargs != sym.NElems {
		return nil, p.errorf("function %s expects %d arguments, got %d", name, sym.NElems, nargs)
	}
	return ast.NewSymbol(ast.FUNCCALL, sym.Type, args, id), nil
}

// exprList parses call arguments into a glue chain: each GLUE holds an
// argument on its right and the earlier arguments on its left, so the
// innermost GLUE is the first argument.
func (p *Parser) exprList() (*ast.Node, int, error) {
	var tree *ast.Node
	n := 0
	for p.tok.Type != lexer.RPAREN {
		arg, err := p.BinExpr(0)
		if err != nil {
			return nil, 0, err
		}
		n++
		tree = ast.New(ast.GLUE, types.None, tree, nil, arg, int64(n))
		switch p.tok.Type {
		case lexer.COMMA:
			p.next()
		case lexer.RPAREN:
		default:
			return nil, 0, p.unexpected()
		}
	}
	return tree, n, nil
}

// arrayAccess parses name[index] into *(name + index*elemsize).
func (p *Parser) arrayAccess() (*ast.Node, error) {
	name := p.tok.Lex
	id, ok := p.ctx.Syms.Find(name)
	if !ok || p.ctx.Syms.Get(id).Kind != symtab.Array {
		return nil, p.errorf("undeclared array %s", name)
	}
	typ := p.ctx.Syms.TypeOf(id)
	p.next()
	if _, err := p.expect(lexer.LBRACK); err != nil {
		return nil, err
	}
	index, err := p.BinExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBRACK); err != nil {
		return nil, err
	}
	if !index.Type.IsInt() {
		return nil, p.errorf("array index is not of integer type")
	}
	index, err = ast.Convert(index, types.Scale, typ)
	if err != nil {
		return nil, p.ctx.Wrap(err)
	}
	base := ast.NewSymbol(ast.ADDR, typ, nil, id)
	base.RValue = true
	sum := ast.New(ast.ADD, typ, base, nil, index, 0)
	sum.RValue = true
	elem, err := types.ValueAt(typ)
	if err != nil {
		return nil, p.ctx.Wrap(err)
	}
	return ast.NewUnary(ast.DEREF, elem, sum, 0), nil
}
