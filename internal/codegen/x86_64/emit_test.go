package x86_64

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/tinyrange/minicc/internal/codegen"
	"github.com/tinyrange/minicc/internal/parser"
	"github.com/tinyrange/minicc/internal/unit"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	ctx := unit.New()
	var out strings.Builder
	gen := codegen.New(New(&out, ctx), ctx)
	p := parser.New(src, ctx)
	gen.Begin()
	for {
		fn, err := p.NextFunction()
		be.Err(t, err, nil)
		if fn == nil {
			break
		}
		be.Err(t, gen.Generate(fn), nil)
		ctx.Syms.FreeLocals()
	}
	be.Err(t, gen.Finish(), nil)
	return out.String()
}

func contains(t *testing.T, asm string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(asm, w) {
			t.Errorf("missing %q in:\n%s", w, asm)
		}
	}
}

func TestFunctionFrame(t *testing.T) {
	asm := compile(t, `
int main() {
	int x;
	long y;
	x = 3;
	y = x;
	return 0;
}`)
	contains(t, asm,
		".globl main\n",
		"main:\n  pushq %rbp\n  movq %rsp, %rbp\n  pushq %r12\n",
		"  movl %r12d, -36(%rbp)\n",
		"  movslq -36(%rbp), %r12\n",
		"  movq %r12, -48(%rbp)\n",
		"  subq $16, %rsp\n",
		"  addq $16, %rsp\n  popq %r15\n",
		"  popq %rbp\n  ret\n",
	)
}

func TestGlobalsAndStrings(t *testing.T) {
	asm := compile(t, `
char c;
int a[5];
char *s;
int main() {
	s = "hi";
	return 0;
}`)
	contains(t, asm,
		".data\n",
		"c:\n  .zero 1\n",
		"  .align 4\na:\n  .zero 20\n",
		"s:\n  .zero 8\n",
		"  leaq L2(%rip), %r12\n",
		"L2:\n  .byte 104\n  .byte 105\n  .byte 0\n",
	)
}

func TestArrayIndexScales(t *testing.T) {
	asm := compile(t, `
int a[10];
int main() {
	a[3] = 7;
	return a[3];
}`)
	contains(t, asm,
		"  leaq a(%rip), %r13\n",
		"  salq $2, %r14\n",
		"  movl %r12d, (%r13)\n",
		"  movslq (%r12), %r12\n",
	)
}

func TestCallArguments(t *testing.T) {
	asm := compile(t, `
int f(int a, int b, int c);
int main() {
	return f(1, 2, 3);
}`)
	contains(t, asm,
		"  subq $32, %rsp\n  movq %r12, 0(%rsp)\n",
		"  movq %r12, 16(%rsp)\n",
		"  movq 0(%rsp), %rdi\n  movq 8(%rsp), %rsi\n  movq 16(%rsp), %rdx\n",
		"  addq $32, %rsp\n  call f\n  movq %rax, %r12\n",
		"  movl %r12d, %eax\n",
	)
}

func TestStackArguments(t *testing.T) {
	asm := compile(t, `
long g(long a, long b, long c, long d, long e, long f, long h, long i);
long main() {
	return g(1, 2, 3, 4, 5, 6, 7, 8);
}`)
	contains(t, asm,
		"  subq $64, %rsp\n",
		"  movq %r12, 48(%rsp)\n",
		"  movq %r12, 56(%rsp)\n",
		"  movq 40(%rsp), %r9\n  addq $48, %rsp\n  call g\n  addq $16, %rsp\n",
	)
}

func TestParamsSpilled(t *testing.T) {
	asm := compile(t, `
long g(char a, int b, long c, long d, long e, long f, long h) {
	return h;
}`)
	contains(t, asm,
		"  movb %dil, -36(%rbp)\n",
		"  movl %esi, -40(%rbp)\n",
		"  movq %rdx, -48(%rbp)\n",
		"  movq 16(%rbp), %r12\n",
	)
}

func TestConditionJumps(t *testing.T) {
	asm := compile(t, `
int main() {
	int i;
	i = 0;
	while (i < 10) {
		i = i + 1;
	}
	if (i) print i;
	return 0;
}`)
	contains(t, asm,
		"L2:\n",
		"  cmpq %r13, %r12\n  jge L3\n",
		"  jmp L2\nL3:\n",
		"  testq %r12, %r12\n  je L4\n",
		"  call printint\n",
	)
}

func TestCompareAndSet(t *testing.T) {
	asm := compile(t, `
int main() {
	int x;
	x = 1 == 2;
	return x;
}`)
	contains(t, asm, "  cmpq %r13, %r12\n  sete %r13b\n  movzbq %r13b, %r13\n")
}

func TestIncrementPointer(t *testing.T) {
	asm := compile(t, `
long *p;
int n;
int main() {
	p++;
	--n;
	return 0;
}`)
	contains(t, asm,
		"  movq p(%rip), %r12\n  addq $8, p(%rip)\n",
		"  subl $1, n(%rip)\n  movslq n(%rip), %r12\n",
	)
}

func TestDivideAndShift(t *testing.T) {
	asm := compile(t, `
long main() {
	long a;
	a = 100;
	return a / 3 >> 1;
}`)
	contains(t, asm,
		"  cqo\n  idivq %r13\n",
		"  movb %r13b, %cl\n  sarq %cl, %r12\n",
	)
}

func TestWideLiteral(t *testing.T) {
	asm := compile(t, `
long main() {
	return 5000000000;
}`)
	contains(t, asm, "  movabsq $5000000000, %r12\n")
}

func TestBadRegister(t *testing.T) {
	ctx := unit.New()
	var out strings.Builder
	b := New(&out, ctx)
	_, err := b.Negate(codegen.NoReg)
	be.Err(t, err, "bad register")
	be.Err(t, b.CopyArg(0, 2, 2), "before argument 1")
}
