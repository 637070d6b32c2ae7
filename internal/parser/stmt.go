package parser

import (
	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/lexer"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
)

func glue(left, right *ast.Node) *ast.Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	}
	return ast.New(ast.GLUE, types.None, left, nil, right, 0)
}

// CompoundStatement parses a braced block. Its statements are glued in
// source order; declarations contribute no node. An empty block yields
// nil.
func (p *Parser) CompoundStatement() (*ast.Node, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var tree *ast.Node
	for p.tok.Type != lexer.RBRACE {
		if p.tok.Type == lexer.EOF {
			return nil, p.errorf("expected }, got EOF")
		}
		n, err := p.statement()
		if err != nil {
			return nil, err
		}
		tree = glue(tree, n)
	}
	p.next()
	return tree, nil
}

// statement parses one statement and stamps it with its first line.
func (p *Parser) statement() (*ast.Node, error) {
	line := p.tok.Line
	n, err := p.parseStatement()
	if n != nil && n.Line == 0 {
		n.Line = line
	}
	return n, err
}

func (p *Parser) parseStatement() (*ast.Node, error) {
	switch p.tok.Type {
	case lexer.LBRACE:
		return p.CompoundStatement()
	case lexer.SEMI:
		p.next()
		return nil, nil
	case lexer.KW_VOID, lexer.KW_CHAR, lexer.KW_INT, lexer.KW_LONG:
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return nil, p.varDeclarations(typ, name.Lex, symtab.Local)
	case lexer.KW_IF:
		return p.ifStatement()
	case lexer.KW_WHILE:
		return p.whileStatement()
	case lexer.KW_FOR:
		return p.forStatement()
	case lexer.KW_RETURN:
		return p.returnStatement()
	case lexer.KW_PRINT:
		return p.printStatement()
	}
	n, err := p.BinExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return n, nil
}

// asCondition keeps a comparison as is so it can be fused with the
// branch; anything else is tested against zero.
func asCondition(n *ast.Node) *ast.Node {
	if ast.IsComparison(n.Op) {
		return n
	}
	return ast.NewUnary(ast.TOBOOL, n.Type, n, 0)
}

func (p *Parser) condition() (*ast.Node, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.BinExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if cond.Type == types.Void {
		return nil, p.errorf("void value used as a condition")
	}
	return asCondition(cond), nil
}

func (p *Parser) ifStatement() (*ast.Node, error) {
	p.next()
	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var els *ast.Node
	if p.tok.Type == lexer.KW_ELSE {
		p.next()
		if els, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return ast.New(ast.IF, types.None, cond, then, els, 0), nil
}

func (p *Parser) whileStatement() (*ast.Node, error) {
	p.next()
	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.New(ast.WHILE, types.None, cond, nil, body, 0), nil
}

// forStatement lowers for (pre; cond; post) body into
// pre; while (cond) { body; post }. A missing condition is always true.
func (p *Parser) forStatement() (*ast.Node, error) {
	p.next()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var pre, cond, post *ast.Node
	var err error
	if p.tok.Type != lexer.SEMI {
		if pre, err = p.BinExpr(0); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	if p.tok.Type != lexer.SEMI {
		if cond, err = p.BinExpr(0); err != nil {
			return nil, err
		}
	} else {
		cond = ast.NewLeaf(ast.INTLIT, types.Char, 1)
		cond.RValue = true
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	if p.tok.Type != lexer.RPAREN {
		line := p.tok.Line
		if post, err = p.BinExpr(0); err != nil {
			return nil, err
		}
		post.Line = line
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	loop := ast.New(ast.WHILE, types.None, asCondition(cond), nil, glue(body, post), 0)
	return glue(pre, loop), nil
}

func (p *Parser) returnStatement() (*ast.Node, error) {
	fn := p.ctx.Syms.Get(p.ctx.FuncID)
	if fn.Type == types.Void {
		return nil, p.errorf("can't return from a void function")
	}
	p.next()
	n, err := p.BinExpr(0)
	if err != nil {
		return nil, err
	}
	_, rc, ok := types.Compatible(fn.Type, n.Type, types.Assign)
	if !ok {
		return nil, p.errorf("incompatible type to return")
	}
	if n, err = ast.Convert(n, rc, fn.Type); err != nil {
		return nil, p.ctx.Wrap(err)
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return ast.NewUnary(ast.RETURN, types.None, n, 0), nil
}

func (p *Parser) printStatement() (*ast.Node, error) {
	p.next()
	n, err := p.BinExpr(0)
	if err != nil {
		return nil, err
	}
	_, rc, ok := types.Compatible(types.Long, n.Type, types.Assign)
	if !ok {
		return nil, p.errorf("can't print a value of type %v", n.Type)
	}
	if n, err = ast.Convert(n, rc, types.Long); err != nil {
		return nil, p.ctx.Wrap(err)
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return ast.NewUnary(ast.PRINT, types.None, n, 0), nil
}
