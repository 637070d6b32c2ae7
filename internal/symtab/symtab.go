package symtab

import (
	"fmt"

	"github.com/tinyrange/minicc/internal/types"
)

// NSymbols is the number of slots in a table. Globals are allocated
// from slot 0 upwards, locals and parameters from the top downwards.
const NSymbols = 1024

// Kind is the structural kind of a symbol.
type Kind int

const (
	Variable Kind = iota
	Function
	Array
)

// Class is the storage class of a symbol.
type Class int

const (
	Global Class = iota
	Local
	Param
)

type Symbol struct {
	Name  string
	Type  types.Type // arrays carry their pointer type
	Kind  Kind
	Class Class
	// NElems is the element count of an array and the parameter count
	// of a function.
	NElems   int
	EndLabel int  // functions only
	Position int  // stack offset of locals and params
	Frame    int  // stack frame size of a function, set by its prologue
	Defined  bool // a function whose body has been parsed
}

type Table struct {
	syms    [NSymbols]Symbol
	globals int // next free global slot
	locals  int // next free local slot
}

func New() *Table {
	return &Table{locals: NSymbols - 1}
}

// Get returns the symbol in slot. The pointer stays valid until the
// slot is released.
func (t *Table) Get(slot int) *Symbol { return &t.syms[slot] }

func (t *Table) TypeOf(slot int) types.Type { return t.syms[slot].Type }
func (t *Table) ClassOf(slot int) Class     { return t.syms[slot].Class }

// Name returns the name in slot, for dumps and diagnostics.
func (t *Table) Name(slot int) string { return t.syms[slot].Name }

func (t *Table) FindGlobal(name string) (int, bool) {
	for i := 0; i < t.globals; i++ {
		if t.syms[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

func (t *Table) FindLocal(name string) (int, bool) {
	for i := t.locals + 1; i < NSymbols; i++ {
		if t.syms[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Find looks a name up in the local scope first, then the global one.
func (t *Table) Find(name string) (int, bool) {
	if slot, ok := t.FindLocal(name); ok {
		return slot, true
	}
	return t.FindGlobal(name)
}

func (t *Table) newGlobal() (int, error) {
	if t.globals > t.locals {
		return -1, fmt.Errorf("too many global symbols")
	}
	slot := t.globals
	t.globals++
	return slot, nil
}

func (t *Table) newLocal() (int, error) {
	if t.locals < t.globals {
		return -1, fmt.Errorf("too many local symbols")
	}
	slot := t.locals
	t.locals--
	return slot, nil
}

// AddGlobal declares a global symbol. Declaring a name again returns the
// existing slot so prototypes and definitions share one entry.
func (t *Table) AddGlobal(name string, typ types.Type, kind Kind, endLabel, nelems int) (int, error) {
	if slot, ok := t.FindGlobal(name); ok {
		return slot, nil
	}
	slot, err := t.newGlobal()
	if err != nil {
		return -1, err
	}
	t.syms[slot] = Symbol{Name: name, Type: typ, Kind: kind, Class: Global, EndLabel: endLabel, NElems: nelems}
	return slot, nil
}

// AddLocal declares a local variable or array of the current function.
func (t *Table) AddLocal(name string, typ types.Type, kind Kind, nelems int) (int, error) {
	return t.addLocal(name, typ, kind, Local, nelems)
}

// AddParam declares the next parameter of the current function.
func (t *Table) AddParam(name string, typ types.Type) (int, error) {
	return t.addLocal(name, typ, Variable, Param, 1)
}

func (t *Table) addLocal(name string, typ types.Type, kind Kind, class Class, nelems int) (int, error) {
	if _, ok := t.FindLocal(name); ok {
		return -1, fmt.Errorf("duplicate local variable declaration %s", name)
	}
	slot, err := t.newLocal()
	if err != nil {
		return -1, err
	}
	t.syms[slot] = Symbol{Name: name, Type: typ, Kind: kind, Class: class, NElems: nelems}
	return slot, nil
}

// Globals returns the global slots in declaration order.
func (t *Table) Globals() []int {
	out := make([]int, 0, t.globals)
	for i := 0; i < t.globals; i++ {
		out = append(out, i)
	}
	return out
}

// Locals returns the local and parameter slots in declaration order.
func (t *Table) Locals() []int {
	var out []int
	for i := NSymbols - 1; i > t.locals; i-- {
		out = append(out, i)
	}
	return out
}

// Params returns the parameter slots of the current function in order.
func (t *Table) Params() []int {
	var out []int
	for _, slot := range t.Locals() {
		if t.syms[slot].Class == Param {
			out = append(out, slot)
		}
	}
	return out
}

// SetFrame records the stack frame size of a function.
func (t *Table) SetFrame(slot, size int) { t.syms[slot].Frame = size }

// FreeLocals releases every local and parameter slot.
func (t *Table) FreeLocals() {
	for i := t.locals + 1; i < NSymbols; i++ {
		t.syms[i] = Symbol{}
	}
	t.locals = NSymbols - 1
}
