// Package arm generates ARMv6 assembly for a Raspberry Pi running
// 32-bit Linux (AAPCS).
package arm

import (
	"fmt"
	"io"

	"modernc.org/mathutil"

	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/codegen"
	"github.com/tinyrange/minicc/internal/symtab"
	"github.com/tinyrange/minicc/internal/types"
	"github.com/tinyrange/minicc/internal/unit"
)

// savedRegs is the space between fp and the first local, holding the
// saved r4-r7.
const savedRegs = 4 * 4

// maxOffset is the reach of a load or store immediate offset.
const maxOffset = 4095

type segment int

const (
	segNone segment = iota
	segText
	segData
)

type argBlock struct {
	regs  int
	stack int
}

// Backend emits GNU as syntax for ARMv6.
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

// arith emits dst = src op n, going through ip when n is too wide for
// an immediate operand. r3 may still hold an incoming argument here.
func (b *Backend) arith(op, dst, src string, n int) {
	if n >= 0 && n <= 255 {
		b.emit("  %s %s, %s, #%d\n", op, dst, src, n)
		return
	}
	b.emit("  ldr ip, =%d\n", n)
	b.emit("  %s %s, %s, ip\n", op, dst, src)
}

// mem returns the memory operand of a variable. For a global it first
// loads the variable's address into ip.
func (b *Backend) mem(id int) string {
	s := b.sym(id)
	if s.Class == symtab.Global {
		b.emit("  ldr ip, =%s\n", s.Name)
		return "[ip]"
	}
	return fmt.Sprintf("[fp, #%d]", s.Position)
}

func (b *Backend) Preamble() { b.text() }

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
		b.emit("  .balign %d\n", mathutil.Min(elem, 4))
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
	b.emit(".type %s, %%function\n", fn.Name)
	b.emit("%s:\n", fn.Name)
	b.emit("  push {r4, r5, r6, r7, fp, lr}\n")
	b.emit("  add fp, sp, #%d\n", savedRegs)

	// Four parameters arrive in r0-r3 and are spilled; the rest sit
	// above the saved fp and lr.
	for i, slot := range syms.Params() {
		p := syms.Get(slot)
		if i >= len(argRegs) {
			p.Position = 8 + 4*(i-len(argRegs))
			continue
		}
		pos, err := b.newLocalOffset(p)
		if err != nil {
			return err
		}
		p.Position = pos
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
	if savedRegs+frame > maxOffset {
		return fmt.Errorf("function %s needs a %d byte frame, more than %d", fn.Name, frame, maxOffset-savedRegs)
	}
	syms.SetFrame(id, frame)
	if frame > 0 {
		b.arith("sub", "sp", "sp", frame)
	}
	for i, slot := range syms.Params() {
		if i >= len(argRegs) {
			break
		}
		p := syms.Get(slot)
		b.emit("  %s %s, [fp, #%d]\n", str(p.Type), argRegs[i], p.Position)
	}
	return nil
}

func (b *Backend) FuncPostamble(id int) error {
	fn := b.sym(id)
	b.Label(fn.EndLabel)
	b.emit("  sub sp, fp, #%d\n", savedRegs)
	b.emit("  pop {r4, r5, r6, r7, fp, pc}\n")
	b.emit("  .ltorg\n")
	return nil
}

// Registers are 32 bits wide, so a long literal keeps its low word.
func (b *Backend) LoadInt(value int64, t types.Type) (codegen.Reg, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	if value >= 0 && value <= 255 {
		b.emit("  mov %s, #%d\n", reglist[r], value)
	} else {
		b.emit("  ldr %s, =%d\n", reglist[r], int32(value))
	}
	return r, nil
}

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
	t := b.sym(id).Type
	m := b.mem(id)
	reg := reglist[r]
	b.emit("  %s %s, %s\n", ldr(t), reg, m)
	switch op {
	case ast.PREINC, ast.PREDEC:
		instr := "add"
		if op == ast.PREDEC {
			instr = "sub"
		}
		b.emit("  %s %s, %s, #%d\n", instr, reg, reg, step(t))
		b.emit("  %s %s, %s\n", str(t), reg, m)
	case ast.POSTINC, ast.POSTDEC:
		instr := "add"
		if op == ast.POSTDEC {
			instr = "sub"
		}
		b.emit("  %s r3, %s, #%d\n", instr, reg, step(t))
		b.emit("  %s r3, %s\n", str(t), m)
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
	b.emit("  ldr %s, =L%d\n", reglist[r], label)
	return r, nil
}

func (b *Backend) Address(id int) (codegen.Reg, error) {
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	s := b.sym(id)
	if s.Class == symtab.Global {
		b.emit("  ldr %s, =%s\n", reglist[r], s.Name)
		return r, nil
	}
	if s.Position < 0 {
		b.arith("sub", reglist[r], "fp", -s.Position)
	} else {
		b.arith("add", reglist[r], "fp", s.Position)
	}
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
	b.emit("  %s %s, [%s]\n", ldr(elem), reglist[r], reglist[r])
	return r, nil
}

func (b *Backend) storeVar(r codegen.Reg, id int) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	t := b.sym(id).Type
	b.emit("  %s %s, %s\n", str(t), reglist[r], b.mem(id))
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
	b.emit("  %s %s, [%s]\n", str(t), reglist[value], reglist[addr])
	return value, b.free(addr)
}

var binInstr = map[ast.Op]string{
	ast.ADD:      "add",
	ast.SUBTRACT: "sub",
	ast.MULTIPLY: "mul",
	ast.AND:      "and",
	ast.OR:       "orr",
	ast.XOR:      "eor",
	ast.LSHIFT:   "lsl",
	ast.RSHIFT:   "asr",
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
		// __aeabi_idiv takes the dividend in r0 and the divisor in r1
		b.emit("  mov r0, %s\n", a)
		b.emit("  mov r1, %s\n", c)
		b.emit("  bl __aeabi_idiv\n")
		b.emit("  mov %s, r0\n", a)
	case ast.LOGAND:
		b.emit("  cmp %s, #0\n", a)
		b.emit("  movne %s, #1\n", a)
		b.emit("  cmp %s, #0\n", c)
		b.emit("  moveq %s, #0\n", a)
	case ast.LOGOR:
		b.emit("  orrs %s, %s, %s\n", a, a, c)
		b.emit("  movne %s, #1\n", a)
	default:
		instr, ok := binInstr[op]
		if !ok {
			return codegen.NoReg, fmt.Errorf("internal error: bad binary operator %v", op)
		}
		b.emit("  %s %s, %s, %s\n", instr, a, a, c)
	}
	return r1, b.free(r2)
}

func (b *Backend) ShiftLeftConst(r codegen.Reg, n int) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  lsl %s, %s, #%d\n", reglist[r], reglist[r], n)
	return r, nil
}

func (b *Backend) Negate(r codegen.Reg) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  rsb %s, %s, #0\n", reglist[r], reglist[r])
	return r, nil
}

func (b *Backend) Invert(r codegen.Reg) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  mvn %s, %s\n", reglist[r], reglist[r])
	return r, nil
}

func (b *Backend) LogNot(r codegen.Reg) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  cmp %s, #0\n", reglist[r])
	b.emit("  moveq %s, #1\n", reglist[r])
	b.emit("  movne %s, #0\n", reglist[r])
	return r, nil
}

func (b *Backend) ToBool(r codegen.Reg) (codegen.Reg, error) {
	if err := check(r); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  cmp %s, #0\n", reglist[r])
	b.emit("  movne %s, #1\n", reglist[r])
	return r, nil
}

// Byte loads zero extend, nothing else is narrower than a register.
func (b *Backend) Widen(r codegen.Reg, from, to types.Type) (codegen.Reg, error) {
	return r, check(r)
}

var condSuffix = map[ast.Op]string{
	ast.EQ: "eq", ast.NE: "ne", ast.LT: "lt", ast.GT: "gt", ast.LE: "le", ast.GE: "ge",
}

var invCondSuffix = map[ast.Op]string{
	ast.EQ: "ne", ast.NE: "eq", ast.LT: "ge", ast.GT: "le", ast.LE: "gt", ast.GE: "lt",
}

func (b *Backend) CompareAndSet(op ast.Op, r1, r2 codegen.Reg) (codegen.Reg, error) {
	cond, ok := condSuffix[op]
	if !ok {
		return codegen.NoReg, fmt.Errorf("internal error: bad comparison operator %v", op)
	}
	if err := check(r1); err != nil {
		return codegen.NoReg, err
	}
	if err := check(r2); err != nil {
		return codegen.NoReg, err
	}
	b.emit("  cmp %s, %s\n", reglist[r1], reglist[r2])
	b.emit("  mov%s %s, #1\n", cond, reglist[r2])
	b.emit("  mov%s %s, #0\n", invCondSuffix[op], reglist[r2])
	return r2, b.free(r1)
}

func (b *Backend) CompareAndJump(op ast.Op, r1, r2 codegen.Reg, label int) error {
	inv, ok := invCondSuffix[op]
	if !ok {
		return fmt.Errorf("internal error: bad comparison operator %v", op)
	}
	if err := check(r1); err != nil {
		return err
	}
	if err := check(r2); err != nil {
		return err
	}
	b.emit("  cmp %s, %s\n", reglist[r1], reglist[r2])
	b.emit("  b%s L%d\n", inv, label)
	b.FreeAll()
	return nil
}

func (b *Backend) JumpIfZero(r codegen.Reg, label int) error {
	if err := check(r); err != nil {
		return err
	}
	b.emit("  cmp %s, #0\n", reglist[r])
	b.emit("  beq L%d\n", label)
	b.FreeAll()
	return nil
}

func (b *Backend) Jump(label int)  { b.emit("  b L%d\n", label) }
func (b *Backend) Label(label int) { b.emit("L%d:\n", label) }

// CopyArg stores an argument word in the outgoing area, which the first
// argument reserves with sp kept 8-byte aligned.
func (b *Backend) CopyArg(r codegen.Reg, pos, nargs int) error {
	if err := check(r); err != nil {
		return err
	}
	if pos == 1 {
		nreg := mathutil.Min(nargs, len(argRegs))
		blk := argBlock{regs: align(4*nreg, 8), stack: align(4*(nargs-nreg), 8)}
		b.calls = append(b.calls, blk)
		b.arith("sub", "sp", "sp", blk.regs+blk.stack)
	}
	if len(b.calls) == 0 {
		return fmt.Errorf("internal error: argument %d copied before argument 1", pos)
	}
	blk := b.calls[len(b.calls)-1]
	off := 4 * (pos - 1)
	if pos > len(argRegs) {
		off = blk.regs + 4*(pos-1-len(argRegs))
	}
	b.emit("  str %s, [sp, #%d]\n", reglist[r], off)
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
			b.emit("  ldr %s, [sp, #%d]\n", argRegs[i], 4*i)
		}
		b.emit("  add sp, sp, #%d\n", blk.regs)
	}
	b.emit("  bl %s\n", b.sym(id).Name)
	if blk.stack > 0 {
		b.arith("add", "sp", "sp", blk.stack)
	}
	r, err := b.alloc()
	if err != nil {
		return codegen.NoReg, err
	}
	b.emit("  mov %s, r0\n", reglist[r])
	return r, nil
}

func (b *Backend) Return(r codegen.Reg, id int) error {
	if err := check(r); err != nil {
		return err
	}
	fn := b.sym(id)
	switch fn.Type {
	case types.Char:
		b.emit("  uxtb r0, %s\n", reglist[r])
	case types.Int, types.Long, types.CharPtr, types.IntPtr, types.LongPtr:
		b.emit("  mov r0, %s\n", reglist[r])
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
	b.emit("  mov r0, %s\n", reglist[r])
	b.emit("  bl printint\n")
	return b.free(r)
}
