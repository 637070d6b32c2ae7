package codegen

import (
	"fmt"

	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
	"github.com/tinyrange/minicc/internal/unit"
)

// Generator walks typed trees and drives a Backend.
type Generator struct {
	be  Backend
	ctx *unit.Context
}

func New(be Backend, ctx *unit.Context) *Generator {
	return &Generator{be: be, ctx: ctx}
}

func (g *Generator) Begin() { g.be.Preamble() }

func (g *Generator) Finish() error { return g.ctx.Wrap(g.be.Postamble()) }

// Generate emits the code of one FUNCTION tree.
func (g *Generator) Generate(fn *ast.Node) error {
	if fn == nil || fn.Op != ast.FUNCTION {
		return g.ctx.Errorf("internal error: Generate needs a function tree")
	}
	_, err := g.gen(fn, None, 0)
	return g.ctx.Wrap(err)
}

// statement generates n for its effects and releases every register.
func (g *Generator) statement(n *ast.Node) error {
	g.at(n)
	_, err := g.gen(n, None, ast.GLUE)
	g.be.FreeAll()
	return err
}

func (g *Generator) gen(n *ast.Node, t Target, parent ast.Op) (Reg, error) {
	if n == nil {
		return NoReg, nil
	}

	switch n.Op {
	case ast.IF:
		return NoReg, g.genIf(n)
	case ast.WHILE:
		return NoReg, g.genWhile(n)
	case ast.GLUE:
		if err := g.statement(n.Left); err != nil {
			return NoReg, err
		}
		return NoReg, g.statement(n.Right)
	case ast.FUNCTION:
		g.at(n)
		g.ctx.FuncID = n.ID
		if err := g.be.FuncPreamble(n.ID); err != nil {
			return NoReg, err
		}
		if err := g.statement(n.Left); err != nil {
			return NoReg, err
		}
		return NoReg, g.be.FuncPostamble(n.ID)
	case ast.FUNCCALL:
		return g.genCall(n)
	case ast.ASSIGN:
		value, err := g.gen(n.Left, None, n.Op)
		if err != nil {
			return NoReg, err
		}
		return g.gen(n.Right, InReg(value), n.Op)
	}

	left, err := g.gen(n.Left, None, n.Op)
	if err != nil {
		return NoReg, err
	}
	right, err := g.gen(n.Right, None, n.Op)
	if err != nil {
		return NoReg, err
	}

	switch n.Op {
	case ast.ADD, ast.SUBTRACT, ast.MULTIPLY, ast.DIVIDE,
		ast.AND, ast.OR, ast.XOR, ast.LSHIFT, ast.RSHIFT,
		ast.LOGAND, ast.LOGOR:
		return g.be.Binary(n.Op, left, right)
	case ast.EQ, ast.NE, ast.LT, ast.GT, ast.LE, ast.GE:
		if parent == ast.IF || parent == ast.WHILE {
			label, ok := t.Label()
			if !ok {
				return NoReg, fmt.Errorf("internal error: no label for comparison")
			}
			return NoReg, g.be.CompareAndJump(n.Op, left, right, label)
		}
		return g.be.CompareAndSet(n.Op, left, right)
	case ast.INTLIT:
		return g.be.LoadInt(n.IntValue, n.Type)
	case ast.STRLIT:
		return g.be.LoadString(n.ID)
	case ast.IDENT:
		if n.RValue || parent == ast.DEREF {
			return g.load(n.ID, n.Op)
		}
		if value, ok := t.Reg(); ok {
			return g.store(value, n.ID)
		}
		return NoReg, nil
	case ast.ADDR:
		return g.be.Address(n.ID)
	case ast.DEREF:
		if n.RValue {
			return g.be.Deref(left, n.Left.Type)
		}
		if value, ok := t.Reg(); ok {
			return g.be.StoreDeref(value, left, n.Type)
		}
		return left, nil
	case ast.SCALE:
		if shift, ok := types.ScaleShift(int(n.IntValue)); ok {
			return g.be.ShiftLeftConst(left, shift)
		}
		size, err := g.be.LoadInt(n.IntValue, types.Int)
		if err != nil {
			return NoReg, err
		}
		return g.be.Binary(ast.MULTIPLY, left, size)
	case ast.PREINC, ast.PREDEC, ast.POSTINC, ast.POSTDEC:
		return g.load(n.Left.ID, n.Op)
	case ast.NEGATE:
		return g.be.Negate(left)
	case ast.INVERT:
		return g.be.Invert(left)
	case ast.LOGNOT:
		return g.be.LogNot(left)
	case ast.TOBOOL:
		if parent == ast.IF || parent == ast.WHILE {
			label, ok := t.Label()
			if !ok {
				return NoReg, fmt.Errorf("internal error: no label for condition")
			}
			return NoReg, g.be.JumpIfZero(left, label)
		}
		return g.be.ToBool(left)
	case ast.WIDEN:
		return g.be.Widen(left, n.Left.Type, n.Type)
	case ast.RETURN:
		return NoReg, g.be.Return(left, g.ctx.FuncID)
	case ast.PRINT:
		return NoReg, g.be.PrintInt(left)
	}
	return NoReg, fmt.Errorf("internal error: unknown AST operator %v", n.Op)
}

// at points error lines at n when it carries a line.
func (g *Generator) at(n *ast.Node) {
	if n != nil && n.Line > 0 {
		g.ctx.Line = n.Line
	}
}

// load reads a variable, folding in op when it is an increment or
// decrement.
func (g *Generator) load(id int, op ast.Op) (Reg, error) {
	if g.ctx.Syms.ClassOf(id) == symtab.Global {
		return g.be.LoadGlobal(id, op)
	}
	return g.be.LoadLocal(id, op)
}

func (g *Generator) store(r Reg, id int) (Reg, error) {
	if g.ctx.Syms.ClassOf(id) == symtab.Global {
		return g.be.StoreGlobal(r, id)
	}
	return g.be.StoreLocal(r, id)
}

// genIf emits
//
//	cond, jump to Lfalse if false
//	then
//	jump to Lend        (with else)
//	Lfalse:
//	else                (with else)
//	Lend:               (with else)
func (g *Generator) genIf(n *ast.Node) error {
	lfalse := g.ctx.NewLabel()
	lend := 0
	if n.Right != nil {
		lend = g.ctx.NewLabel()
	}
	if _, err := g.gen(n.Left, ToLabel(lfalse), n.Op); err != nil {
		return err
	}
	g.be.FreeAll()
	if err := g.statement(n.Mid); err != nil {
		return err
	}
	if n.Right != nil {
		g.be.Jump(lend)
	}
	g.be.Label(lfalse)
	if n.Right != nil {
		if err := g.statement(n.Right); err != nil {
			return err
		}
		g.be.Label(lend)
	}
	return nil
}

func (g *Generator) genWhile(n *ast.Node) error {
	lstart := g.ctx.NewLabel()
	lend := g.ctx.NewLabel()
	g.be.Label(lstart)
	if _, err := g.gen(n.Left, ToLabel(lend), n.Op); err != nil {
		return err
	}
	g.be.FreeAll()
	if err := g.statement(n.Right); err != nil {
		return err
	}
	g.be.Jump(lstart)
	g.be.Label(lend)
	return nil
}

// genCall evaluates the arguments first to last, copying each into its
// slot as soon as it is computed, then emits the call.
func (g *Generator) genCall(n *ast.Node) (Reg, error) {
	var args []*ast.Node
	for glue := n.Left; glue != nil; glue = glue.Left {
		args = append(args, glue)
	}
	nargs := len(args)
	for i := nargs - 1; i >= 0; i-- {
		r, err := g.gen(args[i].Right, None, ast.GLUE)
		if err != nil {
			return NoReg, err
		}
		if err := g.be.CopyArg(r, int(args[i].IntValue), nargs); err != nil {
			return NoReg, err
		}
	}
	return g.be.Call(n.ID, nargs)
}
