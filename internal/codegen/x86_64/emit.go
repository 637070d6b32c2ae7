package x86_64

import (
	"fmt"
	"io"
	"math"

	"modernc.org/mathutil"

	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/codegen"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
	"github.com/tinyrange/minicc/internal/unit"
)

// savedRegs is the space the prologue uses to save the scratch
// registers, between the frame pointer and the first local.
const savedRegs = 8 * 4

type segment int

const (
	segNone segment = iota
	segText
	segData
)

// argBlock is the outgoing argument area of a call being set up: a
// part later loaded into argument registers and a part left on the
// stack, each rounded to 16 bytes.
type argBlock struct {
	regs  int
	stack int
}

// Backend emits AT&T syntax x86_64 assembly for System V AMD64.
type Backend struct {
	regs *codegen.Registers
	w    io.Writer
	ctx  *unit.Context
	seg  segment

	localOffset int
	calls       []argBlock
}

func New(w io.Writer, ctx *unit.Context) *Backend {
	return &Backend{regs: codegen.NewRegisters(len(reglist)), w: w, ctx: ctx}
}

func (b *Backend) FreeAll()       { b.regs.FreeAll() }
func (b *Backend) Available() int { return b.regs.Available() }
func (b *Backend) Size() int      { return b.regs.Size() }

func (b *Backend) emit(format string, args ...any) {
	fmt.Fprintf(b.w, format, args...)
}

func (b *Backend) text() {
	if b.seg != segText {
		b.emit(".text\n")
		b.seg = segText
	}
}

func (b *Backend) data() {
	if b.seg != segData {
		b.emit(".data\n")
		b.seg = segData
	}
}

func align(n, a int) int { return (n + a - 1) / a * a }

func (b *Backend) sym(id int) *symtab.Symbol { return b.ctx.Syms.Get(id) }

// mem is the memory operand of a variable.
func (b *Backend) mem(id int) string {
	s := b.sym(id)
	if s.Class == symtab.Global {
		return s.Name + "(%rip)"
	}
	return fmt.Sprintf("%d(%%rbp)", s.Position)
}

func (b *Backend) Preamble() { b.text() }

// Postamble emits storage for the globals and the string literals.
func (b *Backend) Postamble() error {
	syms := b.ctx.Syms
	for _, id := range syms.Globals() {
		s := syms.Get(id)
		if s.Kind == symtab.Function {
			continue
		}
		size, elem := s.Type.Size(), s.Type.Size()
		if s.Kind == symtab.Array {
			t, err := types.ValueAt(s.Type)
			if err != nil {
				return err
			}
			elem = t.Size()
			size = elem * s.NElems
		}
		b.data()
		b.emit(".globl %s\n", s.Name)
		b.emit("  .align %d\n", elem)
		b.emit("%s:\n", s.Name)
		b.emit("  .zero %d\n", size)
	}
	for _, str := range b.ctx.Strings() {
		b.data()
		b.emit("L%d:\n", str.Label)
		for _, c := range []byte(str.Value) {
			b.emit("  .byte %d\n", c)
		}
		b.emit("  .byte 0\n")
	}
	return nil
}

// newLocalOffset reserves frame space for a local and returns its
// offset from %rbp.
func (b *Backend) newLocalOffset(s *symtab.Symbol) (int, error) {
	size := s.Type.Size()
	if s.Kind == symtab.Array {
		elem, err := types.ValueAt(s.Type)
		if err != nil {
			return 0, err
		}
		size = elem.Size() * s.NElems
	}
	size = mathutil.Max(size, 4)
	b.localOffset = align(b.localOffset+size, mathutil.Min(size, 8))
	return -(savedRegs + b.localOffset), nil
}

func (b *Backend) FuncPreamble(id int) error {
	syms := b.ctx.Syms
	fn := syms.Get(id)
	b.text()
	b.localOffset = 0
	b.emit(".globl %s\n", fn.Name)
	b.emit(".type %s, @function\n", fn.Name)
	b.emit("%s:\n", fn.Name)
	b.emit("  pushq %%rbp\n")
	b.emit("  movq %%rsp, %%rbp\n")
	for _, r := range reglist {
		b.emit("  pushq %s\n", r)
	}

	// The first six parameters arrive in registers and get spilled to
	// the frame. The rest are already on the stack above the return
	// address.
	params := syms.Params()
	for i, slot := range params {
		p := syms.Get(slot)
		if i >= len(argRegs) {
			p.Position = 16 + 8*(i-len(argRegs))
			continue
		}
		pos, err := b.newLocalOffset(p)
		if err != nil {
			return err
		}
		p.Position = pos
		var src string
		switch p.Type.Size() {
		case 1:
			src = bargRegs[i]
		case 4:
			src = dargRegs[i]
		default:
			src = argRegs[i]
		}
		b.emit("  mov%s %s, %d(%%rbp)\n", suffix(p.Type), src, pos)
	}
	for _, slot := range syms.Locals() {
		s := syms.Get(slot)
		if s.Class != symtab.Local {
			continue
		}
		pos, err := b.newLocalOffset(s)
		if err != nil {
			return err
		}
		s.Position = pos
	}

	frame := align(b.localOffset, 16)
	syms.SetFrame(id, frame)
	if frame > 0 {
		b.emit("  subq $%d, %%rsp\n", frame)
	}
	return nil
}

func (b *Backend) FuncPostamble(id int) error {
	fn := b.sym(id)
	b.Label(fn.EndLabel)
	if fn.Frame > 0 {
		b.emit("  addq $%d, %%rsp\n", fn.Frame)
	}
	for i := len(reglist) - 1; i >= 0; i-- {
		b.emit("  popq %s\n", reglist[i])
	}
	b.emit("  popq %%rbp\n")
	b.emit("  ret\n")
	return nil
}

func (b *Backend) LoadInt(value int64, t types.Type) (codegen.Reg, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		b.emit("  movabsq $%d, %s\n", value, reglist[r])
	} else {
		b.emit("  movq $%d, %s\n", value, reglist[r])
	}
	return r, nil
}

// step is how far ++ and -- move a variable of type t.
func step(t types.Type) int {
	if elem, err := types.ValueAt(t); err == nil {
		return elem.Size()
	}
	return 1
}

func (b *Backend) loadVar(id int, op ast.Op) (codegen.Reg, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	t, m := b.sym(id).Type, b.mem(id)
	bump := func(instr string) {
		b.emit("  %s%s $%d, %s\n", instr, suffix(t), step(t), m)
	}
	switch op {
	case ast.PREINC:
		bump("add")
	case ast.PREDEC:
		bump("sub")
	}
	b.emit("  %s %s, %s\n", loadInstr(t), m, reglist[r])
	switch op {
	case ast.POSTINC:
		bump("add")
	case ast.POSTDEC:
		bump("sub")
	}
	return r, nil
}

func (b *Backend) LoadGlobal(id int, op ast.Op) (codegen.Reg, error) { return b.loadVar(id, op) }
func (b *Backend) LoadLocal(id int, op ast.Op) (codegen.Reg, error)  { return b.loadVar(id, op) }

func (b *Backend) LoadString(label int) (codegen.Reg, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.emit("  leaq L%d(%%rip), %s\n", label, reglist[r])
	return r, nil
}

func (b *Backend) Address(id int) (codegen.Reg, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.emit("  leaq %s, %s\n", b.mem(id), reglist[r])
	return r, nil
}

func (b *Backend) Deref(r codegen.Reg, t types.Type) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	elem, err := types.ValueAt(t)
	if err != nil {
		return codegen.NoReg, err
	}
	b.emit("  %s (%s), %s\n", loadInstr(elem), reglist[r], reglist[r])
	return r, nil
}

func (b *Backend) storeVar(r codegen.Reg, id int) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	t := b.sym(id).Type
	b.emit("  mov%s %s, %s\n", suffix(t), name(r, t), b.mem(id))
	return r, nil
}

func (b *Backend) StoreGlobal(r codegen.Reg, id int) (codegen.Reg, error) { return b.storeVar(r, id) }
func (b *Backend) StoreLocal(r codegen.Reg, id int) (codegen.Reg, error)  { return b.storeVar(r, id) }

func (b *Backend) StoreDeref(value, addr codegen.Reg, t types.Type) (codegen.Reg, error) {
	if err := check(value); err != nil {
		return codegen.NoReg, err
	}
	if err := check(addr); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  mov%s %s, (%s)\n", suffix(t), name(value, t), reglist[addr])
	return value, b.free(addr)
}

var binInstr = map[ast.Op]string{
	ast.ADD:      "addq",
	ast.SUBTRACT: "subq",
	ast.MULTIPLY: "imulq",
	ast.AND:      "andq",
	ast.OR:       "orq",
	ast.XOR:      "xorq",
}

func (b *Backend) Binary(op ast.Op, r1, r2 codegen.Reg) (codegen.Reg, error) {
	if err := check(r1); err != nil {
		return codegen.NoReg, err
	}
	if err := check(r2); err != nil {
		return codegen.NoReg, err
	}
	a, c := reglist[r1], reglist[r2]
	switch op {
	case ast.DIVIDE:
		b.emit("  movq %s, %%rax\n", a)
		b.emit("  cqo\n")
		b.emit("  idivq %s\n", c)
		b.emit("  movq %%rax, %s\n", a)
	case ast.LSHIFT, ast.RSHIFT:
		instr := "salq"
		if op == ast.RSHIFT {
			instr = "sarq"
		}
		b.emit("  movb %s, %%cl\n", breglist[r2])
		b.emit("  %s %%cl, %s\n", instr, a)
	case ast.LOGAND:
		lfalse, lend := b.ctx.NewLabel(), b.ctx.NewLabel()
		b.emit("  testq %s, %s\n", a, a)
		b.emit("  je L%d\n", lfalse)
		b.emit("  testq %s, %s\n", c, c)
		b.emit("  je L%d\n", lfalse)
		b.emit("  movq $1, %s\n", a)
		b.emit("  jmp L%d\n", lend)
		b.Label(lfalse)
		b.emit("  movq $0, %s\n", a)
		b.Label(lend)
	case ast.LOGOR:
		ltrue, lend := b.ctx.NewLabel(), b.ctx.NewLabel()
		b.emit("  testq %s, %s\n", a, a)
		b.emit("  jne L%d\n", ltrue)
		b.emit("  testq %s, %s\n", c, c)
		b.emit("  jne L%d\n", ltrue)
		b.emit("  movq $0, %s\n", a)
		b.emit("  jmp L%d\n", lend)
		b.Label(ltrue)
		b.emit("  movq $1, %s\n", a)
		b.Label(lend)
	default:
		instr, ok := binInstr[op]
		if !ok {
			return codegen.NoReg, fmt.Errorf("internal error: bad binary operator %v", op)
		}
		b.emit("  %s %s, %s\n", instr, c, a)
	}
	return r1, b.free(r2)
}

func (b *Backend) ShiftLeftConst(r codegen.Reg, n int) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  salq $%d, %s\n", n, reglist[r])
	return r, nil
}

func (b *Backend) unary(instr string, r codegen.Reg) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  %s %s\n", instr, reglist[r])
	return r, nil
}

func (b *Backend) Negate(r codegen.Reg) (codegen.Reg, error) { return b.unary("negq", r) }
func (b *Backend) Invert(r codegen.Reg) (codegen.Reg, error) { return b.unary("notq", r) }

// setFromZero sets r to 1 or 0 depending on whether r is zero.
func (b *Backend) setFromZero(set string, r codegen.Reg) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  testq %s, %s\n", reglist[r], reglist[r])
	b.emit("  %s %s\n", set, breglist[r])
	b.emit("  movzbq %s, %s\n", breglist[r], reglist[r])
	return r, nil
}

func (b *Backend) LogNot(r codegen.Reg) (codegen.Reg, error) { return b.setFromZero("sete", r) }
func (b *Backend) ToBool(r codegen.Reg) (codegen.Reg, error) { return b.setFromZero("setne", r) }

// Loads already extend every value to 64 bits.
func (b *Backend) Widen(r codegen.Reg, from, to types.Type) (codegen.Reg, error) {
	return r, check(r)
}

var setInstr = map[ast.Op]string{
	ast.EQ: "sete", ast.NE: "setne", ast.LT: "setl", ast.GT: "setg", ast.LE: "setle", ast.GE: "setge",
}

// inverted jumps: taken when the comparison is false
var jumpInstr = map[ast.Op]string{
	ast.EQ: "jne", ast.NE: "je", ast.LT: "jge", ast.GT: "jle", ast.LE: "jg", ast.GE: "jl",
}

func (b *Backend) CompareAndSet(op ast.Op, r1, r2 codegen.Reg) (codegen.Reg, error) {
	set, ok := setInstr[op]
	if !ok {
		return codegen.NoReg, fmt.Errorf("internal error: bad comparison operator %v", op)
	}
	if err := check(r1); err != nil {
		return codegen.NoReg, err
	}
	if err := check(r2); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  cmpq %s, %s\n", reglist[r2], reglist[r1])
	b.emit("  %s %s\n", set, breglist[r2])
	b.emit("  movzbq %s, %s\n", breglist[r2], reglist[r2])
	return r2, b.free(r1)
}

func (b *Backend) CompareAndJump(op ast.Op, r1, r2 codegen.Reg, label int) error {
	jump, ok := jumpInstr[op]
	if !ok {
		return fmt.Errorf("internal error: bad comparison operator %v", op)
	}
	if err := check(r1); err != nil {
		return err
	}
	if err := check(r2); err != nil {
		return err
	}
	b.emit("  cmpq %s, %s\n", reglist[r2], reglist[r1])
	b.emit("  %s L%d\n", jump, label)
	b.FreeAll()
	return nil
}

func (b *Backend) JumpIfZero(r codegen.Reg, label int) error {
	if err := check(r); err != nil {
		return err
	}
	b.emit("  testq %s, %s\n", reglist[r], reglist[r])
	b.emit("  je L%d\n", label)
	b.FreeAll()
	return nil
}

func (b *Backend) Jump(label int)  { b.emit("  jmp L%d\n", label) }
func (b *Backend) Label(label int) { b.emit("L%d:\n", label) }

// CopyArg stores an argument in the outgoing area. The first argument
// of a call reserves the area, sized so %rsp stays 16-byte aligned.
func (b *Backend) CopyArg(r codegen.Reg, pos, nargs int) error {
	if err := check(r); err != nil {
		return err
	}
	if pos == 1 {
		nreg := mathutil.Min(nargs, len(argRegs))
		blk := argBlock{regs: align(8*nreg, 16), stack: align(8*(nargs-nreg), 16)}
		b.calls = append(b.calls, blk)
		b.emit("  subq $%d, %%rsp\n", blk.regs+blk.stack)
	}
	if len(b.calls) == 0 {
		return fmt.Errorf("internal error: argument %d copied before argument 1", pos)
	}
	blk := b.calls[len(b.calls)-1]
	off := 8 * (pos - 1)
	if pos > len(argRegs) {
		off = blk.regs + 8*(pos-1-len(argRegs))
	}
	b.emit("  movq %s, %d(%%rsp)\n", reglist[r], off)
	return b.free(r)
}

func (b *Backend) Call(id, nargs int) (codegen.Reg, error) {
	var blk argBlock
	if nargs > 0 {
		if len(b.calls) == 0 {
			return codegen.NoReg, fmt.Errorf("internal error: call with %d arguments but none copied", nargs)
		}
		blk = b.calls[len(b.calls)-1]
		b.calls = b.calls[:len(b.calls)-1]
		for i := 0; i < mathutil.Min(nargs, len(argRegs)); i++ {
			b.emit("  movq %d(%%rsp), %s\n", 8*i, argRegs[i])
		}
		b.emit("  addq $%d, %%rsp\n", blk.regs)
	}
	b.emit("  call %s\n", b.sym(id).Name)
	if blk.stack > 0 {
		b.emit("  addq $%d, %%rsp\n", blk.stack)
	}
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.emit("  movq %%rax, %s\n", reglist[r])
	return r, nil
}

func (b *Backend) Return(r codegen.Reg, id int) error {
	if err := check(r); err != nil {
		return err
	}
	fn := b.sym(id)
	switch fn.Type {
	case types.Char:
		b.emit("  movzbl %s, %%eax\n", breglist[r])
	case types.Int:
		b.emit("  movl %s, %%eax\n", dreglist[r])
	case types.Long, types.CharPtr, types.IntPtr, types.LongPtr:
		b.emit("  movq %s, %%rax\n", reglist[r])
	default:
		return fmt.Errorf("internal error: bad function type %v in Return", fn.Type)
	}
	b.Jump(fn.EndLabel)
	return b.free(r)
}

func (b *Backend) PrintInt(r codegen.Reg) error {
	if err := check(r); err != nil {
		return err
	}
	b.emit("  movq %s, %%rdi\n", reglist[r])
	b.emit("  call printint\n")
	return b.free(r)
}
