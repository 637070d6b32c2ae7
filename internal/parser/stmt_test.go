package parser

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
	"github.com/tinyrange/minicc/internal/unit"
)

// parseFunctions returns every function tree in src.
func parseFunctions(src string) ([]*ast.Node, *unit.Context, error) {
	ctx := unit.New()
	p := New(src, ctx)
	var fns []*ast.Node
	for {
		fn, err := p.NextFunction()
		if err != nil {
			return nil, ctx, err
		}
		if fn == nil {
			return fns, ctx, nil
		}
		fns = append(fns, fn)
	}
}

func parseFunction(t *testing.T, src string) (*ast.Node, *unit.Context) {
	t.Helper()
	fns, ctx, err := parseFunctions(src)
	be.Err(t, err, nil)
	be.Equal(t, len(fns), 1)
	return fns[0], ctx
}

func TestReturnZero(t *testing.T) {
	fn, ctx := parseFunction(t, "int main() { return 0; }")
	be.Equal(t, fn.Op, ast.FUNCTION)
	be.Equal(t, fn.Type, types.Int)
	be.Equal(t, ctx.Syms.Name(fn.ID), "main")
	be.Equal(t, ctx.Syms.Get(fn.ID).EndLabel, 1)

	ret := fn.Left
	be.Equal(t, ret.Op, ast.RETURN)
	be.Equal(t, ret.Left.Op, ast.WIDEN)
	be.Equal(t, ret.Left.Type, types.Int)
	be.Equal(t, ret.Left.Left.IntValue, int64(0))
}

func TestMissingReturn(t *testing.T) {
	_, _, err := parseFunctions("int f() {\n  int x;\n  x = 1;\n}")
	be.Err(t, err, "no return for function with non-void type on line 4")
}

func TestReturnNotLast(t *testing.T) {
	_, _, err := parseFunctions("int f() { return 1; print 2; }")
	be.Err(t, err, "no return for function with non-void type")
}

func TestReturnErrors(t *testing.T) {
	_, _, err := parseFunctions("void f() { return 1; }")
	be.Err(t, err, "can't return from a void function")

	_, _, err = parseFunctions("char f() { long x; return x; }")
	be.Err(t, err, "incompatible type to return")
}

func TestVoidFunctionWithoutReturn(t *testing.T) {
	fn, _ := parseFunction(t, "void f() { }")
	be.True(t, fn.Left == nil)
}

func TestStatementsGluedInOrder(t *testing.T) {
	fn, _ := parseFunction(t, "void f() { int a; int b; a = 1; b = 2; print a; }")
	body := fn.Left
	be.Equal(t, body.Op, ast.GLUE)
	be.Equal(t, body.Right.Op, ast.PRINT)
	be.Equal(t, body.Left.Op, ast.GLUE)
	be.Equal(t, body.Left.Left.Op, ast.ASSIGN)
	be.Equal(t, body.Left.Right.Op, ast.ASSIGN)
}

func TestIfConditions(t *testing.T) {
	fn, _ := parseFunction(t, "void f() { int x; if (x < 5) x = 1; }")
	n := fn.Left
	be.Equal(t, n.Op, ast.IF)
	be.Equal(t, n.Left.Op, ast.LT)
	be.Equal(t, n.Mid.Op, ast.ASSIGN)
	be.True(t, n.Right == nil)

	fn, _ = parseFunction(t, "void f() { int x; if (x) { x = 1; } else { x = 2; } }")
	n = fn.Left
	be.Equal(t, n.Left.Op, ast.TOBOOL)
	be.Equal(t, n.Left.Left.Op, ast.IDENT)
	be.True(t, n.Left.Left.RValue)
	be.Equal(t, n.Right.Op, ast.ASSIGN)
}

func TestWhile(t *testing.T) {
	fn, _ := parseFunction(t, "void f() { int i; while (i != 0) { i = i - 1; } }")
	n := fn.Left
	be.Equal(t, n.Op, ast.WHILE)
	be.Equal(t, n.Left.Op, ast.NE)
	be.Equal(t, n.Right.Op, ast.ASSIGN)
}

func TestForDesugarsToWhile(t *testing.T) {
	fn, _ := parseFunction(t, "void f() { int i; for (i = 0; i < 10; i++) { print i; } }")
	n := fn.Left
	be.Equal(t, n.Op, ast.GLUE)
	be.Equal(t, n.Left.Op, ast.ASSIGN)
	loop := n.Right
	be.Equal(t, loop.Op, ast.WHILE)
	be.Equal(t, loop.Left.Op, ast.LT)
	be.Equal(t, loop.Right.Op, ast.GLUE)
	be.Equal(t, loop.Right.Left.Op, ast.PRINT)
	be.Equal(t, loop.Right.Right.Op, ast.POSTINC)
}

func TestForWithoutCondition(t *testing.T) {
	fn, _ := parseFunction(t, "void f() { for (;;) print 1; }")
	loop := fn.Left
	be.Equal(t, loop.Op, ast.WHILE)
	be.Equal(t, loop.Left.Op, ast.TOBOOL)
	be.Equal(t, loop.Right.Op, ast.PRINT)
}

func TestDeclarations(t *testing.T) {
	fns, ctx, err := parseFunctions(`
char c, buf[16];
long *lp;
int f(int a, char *s);
int f(int a, char *s) { int tmp[4]; return a; }
`)
	be.Err(t, err, nil)
	be.Equal(t, len(fns), 1)

	syms := ctx.Syms
	id, _ := syms.FindGlobal("buf")
	be.Equal(t, syms.Get(id).Kind, symtab.Array)
	be.Equal(t, syms.Get(id).Type, types.CharPtr)
	be.Equal(t, syms.Get(id).NElems, 16)
	id, _ = syms.FindGlobal("lp")
	be.Equal(t, syms.TypeOf(id), types.LongPtr)
	id, _ = syms.FindGlobal("f")
	be.Equal(t, syms.Get(id).NElems, 2)
	be.Equal(t, fns[0].ID, id)

	// locals of the definition are still live until the driver frees them
	tmp, ok := syms.FindLocal("tmp")
	be.True(t, ok)
	be.Equal(t, syms.Get(tmp).NElems, 4)
	be.Equal(t, len(syms.Params()), 2)
}

func TestDeclarationErrors(t *testing.T) {
	tests := []struct {
		src string
		err string
	}{
		{"int x; int x;", "duplicate global declaration x"},
		{"void f() { int a; char a; }", "duplicate local variable declaration a"},
		{"void v;", "variable v can't be void"},
		{"int **pp;", "pointers to pointers are not supported"},
		{"int a[0];", "array size must be positive"},
		{"int f(int a); int f() { return 1; }", "function f declared with 1 parameters, now 0"},
		{"int x; int x() { return 1; }", "x redeclared as a function"},
		{"int f() { return 1; }\nint f() { return 2; }", "function f is already defined on line 2"},
		{"foo x;", "illegal type"},
		{"int x @", "unrecognised character \"@\""},
		{"int main() { return 0 }", "expected ;, got }"},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			_, _, err := parseFunctions(test.src)
			be.Err(t, err, test.err)
		})
	}
}

func TestPrototypeAfterDefinition(t *testing.T) {
	fns, ctx, err := parseFunctions("int f() { return 1; } int f(); int main() { return f(); }")
	be.Err(t, err, nil)
	be.Equal(t, len(fns), 2)
	id, ok := ctx.Syms.FindGlobal("f")
	be.True(t, ok)
	be.True(t, ctx.Syms.Get(id).Defined)
}

func TestStatementLines(t *testing.T) {
	fn, _ := parseFunction(t, "void f() {\n\tint x;\n\tx = 1;\n\n\tfor (x = 0; x < 3;\n\t\tx = x + 1) {}\n}")
	be.Equal(t, fn.Line, 1)
	body := fn.Left
	be.Equal(t, body.Op, ast.GLUE)
	be.Equal(t, body.Left.Line, 3)
	loop := body.Right
	be.Equal(t, loop.Line, 5)
	be.Equal(t, loop.Right.Op, ast.WHILE)
	be.Equal(t, loop.Right.Right.Op, ast.ASSIGN)
	be.Equal(t, loop.Right.Right.Line, 6)
}

func TestVoidParams(t *testing.T) {
	fns, ctx, err := parseFunctions("int main(void) { return 0; }")
	be.Err(t, err, nil)
	be.Equal(t, ctx.Syms.Get(fns[0].ID).NElems, 0)
}

func TestRecursiveCall(t *testing.T) {
	fn, _ := parseFunction(t, "int fact(int n) { if (n <= 1) return 1; return n * fact(n - 1); }")
	ret := fn.Left.Right
	be.Equal(t, ret.Op, ast.RETURN)
	be.Equal(t, ret.Left.Op, ast.MULTIPLY)
	be.Equal(t, ret.Left.Right.Op, ast.FUNCCALL)
}
