package parser

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
	"github.com/tinyrange/minicc/internal/unit"
)

type global struct {
	name   string
	typ    types.Type
	kind   symtab.Kind
	nelems int
}

// parseExpr parses src as one expression after declaring globals.
func parseExpr(t *testing.T, src string, globals ...global) (*ast.Node, *unit.Context, error) {
	t.Helper()
	ctx := unit.New()
	for _, g := range globals {
		nelems := g.nelems
		if nelems == 0 {
			nelems = 1
		}
		_, err := ctx.Syms.AddGlobal(g.name, g.typ, g.kind, 0, nelems)
		be.Err(t, err, nil)
	}
	n, err := New(src, ctx).BinExpr(0)
	return n, ctx, err
}

func slot(t *testing.T, ctx *unit.Context, name string) int {
	t.Helper()
	id, ok := ctx.Syms.Find(name)
	be.True(t, ok)
	return id
}

func TestPrecedence(t *testing.T) {
	n, _, err := parseExpr(t, "2 + 3 * 4")
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.ADD)
	be.Equal(t, n.Left.Op, ast.INTLIT)
	be.Equal(t, n.Left.IntValue, int64(2))
	be.Equal(t, n.Right.Op, ast.MULTIPLY)
	be.Equal(t, n.Right.Left.IntValue, int64(3))
	be.Equal(t, n.Right.Right.IntValue, int64(4))
	be.True(t, n.RValue)
}

func TestLeftAssociative(t *testing.T) {
	n, _, err := parseExpr(t, "10 - 4 - 3")
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.SUBTRACT)
	be.Equal(t, n.Left.Op, ast.SUBTRACT)
	be.Equal(t, n.Right.IntValue, int64(3))
}

func TestPrecedenceLadder(t *testing.T) {
	// || binds loosest, then &&, |, ^, &, ==, <, <<, +, *
	n, _, err := parseExpr(t, "1 || 2 && 3 | 4 ^ 5 & 6 == 7 < 8 << 9 + 10 * 11")
	be.Err(t, err, nil)
	want := []ast.Op{ast.LOGOR, ast.LOGAND, ast.OR, ast.XOR, ast.AND, ast.EQ, ast.LT, ast.LSHIFT, ast.ADD, ast.MULTIPLY}
	for _, op := range want {
		be.Equal(t, n.Op, op)
		n = n.Right
	}
	be.Equal(t, n.IntValue, int64(11))
}

func TestAssignRightAssociative(t *testing.T) {
	n, ctx, err := parseExpr(t, "a = b = 5",
		global{name: "a", typ: types.Int},
		global{name: "b", typ: types.Int})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.ASSIGN)
	be.Equal(t, n.Right.Op, ast.IDENT)
	be.Equal(t, n.Right.ID, slot(t, ctx, "a"))

	inner := n.Left
	be.Equal(t, inner.Op, ast.ASSIGN)
	be.Equal(t, inner.Right.ID, slot(t, ctx, "b"))
	be.Equal(t, inner.Left.Op, ast.WIDEN)
	be.Equal(t, inner.Left.Left.IntValue, int64(5))
}

func TestAssignRoundTrip(t *testing.T) {
	n, ctx, err := parseExpr(t, "x = x", global{name: "x", typ: types.Int})
	be.Err(t, err, nil)
	x := slot(t, ctx, "x")
	be.Equal(t, n.Op, ast.ASSIGN)
	be.Equal(t, n.Type, types.Int)
	be.Equal(t, n.Left.Op, ast.IDENT)
	be.Equal(t, n.Left.ID, x)
	be.True(t, n.Left.RValue)
	be.Equal(t, n.Right.Op, ast.IDENT)
	be.Equal(t, n.Right.ID, x)
	be.True(t, !n.Right.RValue)
}

func TestAssignErrors(t *testing.T) {
	tests := []struct {
		src string
		err string
	}{
		{"c = l", "incompatible expression in assignment"},
		{"p = l", "incompatible expression in assignment"},
		{"5 = c", "can't assign to this expression"},
		{"c + 1 = c", "can't assign to this expression"},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			_, _, err := parseExpr(t, test.src,
				global{name: "c", typ: types.Char},
				global{name: "l", typ: types.Long},
				global{name: "p", typ: types.IntPtr})
			be.Err(t, err, test.err)
		})
	}
}

func TestWidenInBinary(t *testing.T) {
	n, _, err := parseExpr(t, "c + l",
		global{name: "c", typ: types.Char},
		global{name: "l", typ: types.Long})
	be.Err(t, err, nil)
	be.Equal(t, n.Type, types.Long)
	be.Equal(t, n.Left.Op, ast.WIDEN)
	be.Equal(t, n.Left.Type, types.Long)
	be.Equal(t, n.Right.Op, ast.IDENT)
	be.True(t, n.Left.Left.RValue)
}

func TestPointerArithmetic(t *testing.T) {
	n, _, err := parseExpr(t, "p + 1", global{name: "p", typ: types.IntPtr})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.ADD)
	be.Equal(t, n.Type, types.IntPtr)
	be.Equal(t, n.Left.Op, ast.IDENT)
	be.Equal(t, n.Right.Op, ast.SCALE)
	be.Equal(t, n.Right.IntValue, int64(4))

	n, _, err = parseExpr(t, "2 + q", global{name: "q", typ: types.LongPtr})
	be.Err(t, err, nil)
	be.Equal(t, n.Type, types.LongPtr)
	be.Equal(t, n.Left.Op, ast.SCALE)
	be.Equal(t, n.Left.IntValue, int64(8))

	n, _, err = parseExpr(t, "s + 1", global{name: "s", typ: types.CharPtr})
	be.Err(t, err, nil)
	be.Equal(t, n.Type, types.CharPtr)
	be.Equal(t, n.Right.Op, ast.INTLIT)
}

func TestPointerComparisonIsInt(t *testing.T) {
	n, _, err := parseExpr(t, "p == p", global{name: "p", typ: types.IntPtr})
	be.Err(t, err, nil)
	be.Equal(t, n.Type, types.Int)
}

func TestIncompatibleBinary(t *testing.T) {
	_, _, err := parseExpr(t, "p + q",
		global{name: "p", typ: types.IntPtr},
		global{name: "q", typ: types.CharPtr})
	be.Err(t, err, "incompatible types in binary expression")

	_, _, err = parseExpr(t, "p * 2", global{name: "p", typ: types.IntPtr})
	be.Err(t, err, "incompatible types in binary expression")
}

func TestArrayIndex(t *testing.T) {
	n, ctx, err := parseExpr(t, "arr[3]", global{name: "arr", typ: types.IntPtr, kind: symtab.Array, nelems: 10})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.DEREF)
	be.Equal(t, n.Type, types.Int)
	be.True(t, n.RValue)
	sum := n.Left
	be.Equal(t, sum.Op, ast.ADD)
	be.Equal(t, sum.Left.Op, ast.ADDR)
	be.Equal(t, sum.Left.ID, slot(t, ctx, "arr"))
	be.Equal(t, sum.Right.Op, ast.SCALE)
	be.Equal(t, sum.Right.IntValue, int64(4))
	be.Equal(t, sum.Right.Left.IntValue, int64(3))

	_, _, err = parseExpr(t, "x[1]", global{name: "x", typ: types.Int})
	be.Err(t, err, "undeclared array x")
}

func TestArrayIndexNotInteger(t *testing.T) {
	_, _, err := parseExpr(t, "arr[p]",
		global{name: "arr", typ: types.CharPtr, kind: symtab.Array, nelems: 4},
		global{name: "p", typ: types.IntPtr})
	be.Err(t, err, "array index is not of integer type")
}

func TestAddressAndDeref(t *testing.T) {
	n, ctx, err := parseExpr(t, "&x", global{name: "x", typ: types.Long})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.ADDR)
	be.Equal(t, n.Type, types.LongPtr)
	be.Equal(t, n.ID, slot(t, ctx, "x"))

	_, _, err = parseExpr(t, "&5")
	be.Err(t, err, "& operator must be followed by an identifier")

	_, _, err = parseExpr(t, "*5")
	be.Err(t, err, "* operator must be followed by an identifier or *")

	_, _, err = parseExpr(t, "&p", global{name: "p", typ: types.IntPtr})
	be.Err(t, err, "can't take the address of a pointer on line 1")
	be.True(t, !strings.Contains(err.Error(), "internal error"))

	_, _, err = parseExpr(t, "*x", global{name: "x", typ: types.Int})
	be.Err(t, err, "can't dereference a value of type int on line 1")
}

func TestParenthesisedTarget(t *testing.T) {
	n, ctx, err := parseExpr(t, "(x) = 5", global{name: "x", typ: types.Int})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.ASSIGN)
	be.Equal(t, n.Right.Op, ast.IDENT)
	be.Equal(t, n.Right.ID, slot(t, ctx, "x"))
	be.True(t, !n.Right.RValue)

	n, _, err = parseExpr(t, "(*p) = 7", global{name: "p", typ: types.IntPtr})
	be.Err(t, err, nil)
	be.Equal(t, n.Right.Op, ast.DEREF)
	be.True(t, !n.Right.RValue)
}

func TestStoreThroughPointer(t *testing.T) {
	n, _, err := parseExpr(t, "*p = 7", global{name: "p", typ: types.IntPtr})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.ASSIGN)
	be.Equal(t, n.Right.Op, ast.DEREF)
	be.True(t, !n.Right.RValue)
	be.Equal(t, n.Right.Left.Op, ast.IDENT)
	be.Equal(t, n.Left.Op, ast.WIDEN)
	be.Equal(t, n.Left.Type, types.Int)
}

func TestUnary(t *testing.T) {
	g := global{name: "x", typ: types.Int}
	tests := []struct {
		src string
		op  ast.Op
	}{
		{"-x", ast.NEGATE},
		{"~x", ast.INVERT},
		{"!x", ast.LOGNOT},
		{"++x", ast.PREINC},
		{"--x", ast.PREDEC},
		{"x++", ast.POSTINC},
		{"x--", ast.POSTDEC},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			n, _, err := parseExpr(t, test.src, g)
			be.Err(t, err, nil)
			be.Equal(t, n.Op, test.op)
			be.Equal(t, n.Type, types.Int)
			be.Equal(t, n.Left.Op, ast.IDENT)
		})
	}

	_, _, err := parseExpr(t, "++5")
	be.Err(t, err, "++ operator must be followed by an identifier")

	n, _, err := parseExpr(t, "++(x)", g)
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.PREINC)
	be.True(t, !n.Left.RValue)
}

func TestLiterals(t *testing.T) {
	n, _, err := parseExpr(t, "300")
	be.Err(t, err, nil)
	be.Equal(t, n.Type, types.Int)

	n, ctx, err := parseExpr(t, `"hello"`)
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.STRLIT)
	be.Equal(t, n.Type, types.CharPtr)
	be.Equal(t, ctx.Strings()[0].Label, n.ID)
	be.Equal(t, ctx.Strings()[0].Value, "hello")
}

func TestCallArguments(t *testing.T) {
	n, ctx, err := parseExpr(t, "f(1, 2, 3)", global{name: "f", typ: types.Int, kind: symtab.Function, nelems: 3})
	be.Err(t, err, nil)
	be.Equal(t, n.Op, ast.FUNCCALL)
	be.Equal(t, n.ID, slot(t, ctx, "f"))

	// the outermost glue is the last argument
	g := n.Left
	for want := int64(3); want >= 1; want-- {
		be.Equal(t, g.Op, ast.GLUE)
		be.Equal(t, g.IntValue, want)
		be.Equal(t, g.Right.IntValue, want)
		g = g.Left
	}
	be.True(t, g == nil)
}

func TestCallErrors(t *testing.T) {
	f := global{name: "f", typ: types.Int, kind: symtab.Function, nelems: 1}
	_, _, err := parseExpr(t, "f(1, 2)", f)
	be.Err(t, err, "function f expects 1 arguments, got 2")

	_, _, err = parseExpr(t, "g(1)", f)
	be.Err(t, err, "undeclared function g")

	_, _, err = parseExpr(t, "f + 1", f)
	be.Err(t, err, "function f used as a variable")
}

func TestUnknownVariable(t *testing.T) {
	_, _, err := parseExpr(t, "y + 1")
	be.Err(t, err, "unknown variable y on line 1")
}
