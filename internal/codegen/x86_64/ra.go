package x86_64

import (
	"fmt"

	"github.com/tinyrange/minicc/internal/codegen"
	"github.com/tinyrange/minicc/internal/types"
)

// Scratch registers handed out by the pool. They are callee-saved, so
// values held in them survive calls; every function saves them in its
// prologue.
var (
	reglist  = []string{"%r12", "%r13", "%r14", "%r15"}
	dreglist = []string{"%r12d", "%r13d", "%r14d", "%r15d"}
	breglist = []string{"%r12b", "%r13b", "%r14b", "%r15b"}
)

// System V integer argument registers, by width.
var (
	argRegs  = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
	dargRegs = []string{"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d"}
	bargRegs = []string{"%dil", "%sil", "%dl", "%cl", "%r8b", "%r9b"}
)

func (b *Backend) alloc() (codegen.Reg, error) {
	return b.regs.Alloc()
}

func (b *Backend) free(r codegen.Reg) error {
	return b.regs.Free(r)
}

// name returns the register r at the width of t.
func name(r codegen.Reg, t types.Type) string {
	switch t.Size() {
	case 1:
		return breglist[r]
	case 4:
		return dreglist[r]
	}
	return reglist[r]
}

func check(r codegen.Reg) error {
	if r < 0 || int(r) >= len(reglist) {
		return fmt.Errorf("internal error: bad register %d", r)
	}
	return nil
}

// suffix is the AT&T operand size suffix for t.
func suffix(t types.Type) string {
	switch t.Size() {
	case 1:
		return "b"
	case 4:
		return "l"
	}
	return "q"
}

// loadInstr sign or zero extends a value of type t to 64 bits.
func loadInstr(t types.Type) string {
	switch t {
	case types.Char:
		return "movzbq"
	case types.Int:
		return "movslq"
	}
	return "movq"
}
