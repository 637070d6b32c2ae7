package codegen

import (
	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/types"
)

// Backend is what the generator needs from a target architecture.
// Symbols are passed as slots of the context's symbol table and labels
// as ids from its label counter. Every operation that consumes a
// register frees it; an operation that produces a value returns the
// register holding it.
type Backend interface {
	// FreeAll, Available and Size expose the backend's register pool.
	FreeAll()
	Available() int
	Size() int

	// Preamble starts the output file, Postamble finishes it with the
	// data for globals and string literals.
	Preamble()
	Postamble() error
	// FuncPreamble lays out the function's stack frame and records its
	// size in the symbol table.
	FuncPreamble(id int) error
	FuncPostamble(id int) error

	LoadInt(value int64, t types.Type) (Reg, error)
	// LoadGlobal and LoadLocal load a variable, applying op when it is
	// one of PREINC, PREDEC, POSTINC, POSTDEC.
	LoadGlobal(id int, op ast.Op) (Reg, error)
	LoadLocal(id int, op ast.Op) (Reg, error)
	LoadString(label int) (Reg, error)
	Address(id int) (Reg, error)
	// Deref loads the value r points to; t is the pointer type.
	Deref(r Reg, t types.Type) (Reg, error)
	StoreGlobal(r Reg, id int) (Reg, error)
	StoreLocal(r Reg, id int) (Reg, error)
	// StoreDeref stores value through addr; t is the stored type.
	StoreDeref(value, addr Reg, t types.Type) (Reg, error)

	// Binary computes r1 op r2 into one of the two registers and frees
	// the other.
	Binary(op ast.Op, r1, r2 Reg) (Reg, error)
	ShiftLeftConst(r Reg, n int) (Reg, error)
	Negate(r Reg) (Reg, error)
	Invert(r Reg) (Reg, error)
	LogNot(r Reg) (Reg, error)
	ToBool(r Reg) (Reg, error)
	Widen(r Reg, from, to types.Type) (Reg, error)

	CompareAndSet(op ast.Op, r1, r2 Reg) (Reg, error)
	// CompareAndJump jumps to label when r1 op r2 is false and frees
	// every register.
	CompareAndJump(op ast.Op, r1, r2 Reg, label int) error
	// JumpIfZero jumps to label when r is zero and frees every register.
	JumpIfZero(r Reg, label int) error
	Jump(label int)
	Label(label int)

	// CopyArg moves argument pos of nargs into its outgoing slot and
	// frees r.
	CopyArg(r Reg, pos, nargs int) error
	Call(id, nargs int) (Reg, error)
	Return(r Reg, id int) error
	PrintInt(r Reg) error
}
