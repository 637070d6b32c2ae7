package types

import (
	"fmt"

	"modernc.org/mathutil"
)

// Type is one of the primitive types of the language. Pointers only
// nest one level deep, so every type is a single value.
type Type int

const (
	None Type = iota // no value: statements, glue
	Void
	Char
	Int
	Long
	CharPtr
	IntPtr
	LongPtr
)

var names = [...]string{
	None:    "none",
	Void:    "void",
	Char:    "char",
	Int:     "int",
	Long:    "long",
	CharPtr: "char*",
	IntPtr:  "int*",
	LongPtr: "long*",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(names) {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return names[t]
}

// Size returns the size in bytes of a value of this type.
func (t Type) Size() int {
	switch t {
	case Char:
		return 1
	case Int:
		return 4
	case Long, CharPtr, IntPtr, LongPtr:
		return 8
	default:
		return 0
	}
}

func (t Type) IsInt() bool { return t == Char || t == Int || t == Long }
func (t Type) IsPtr() bool { return t == CharPtr || t == IntPtr || t == LongPtr }

// PointerTo returns the pointer type for an integer type.
func PointerTo(t Type) (Type, error) {
	switch t {
	case Char:
		return CharPtr, nil
	case Int:
		return IntPtr, nil
	case Long:
		return LongPtr, nil
	}
	return None, fmt.Errorf("internal error: no pointer type for %v", t)
}

// ValueAt returns the type a pointer points to.
func ValueAt(t Type) (Type, error) {
	switch t {
	case CharPtr:
		return Char, nil
	case IntPtr:
		return Int, nil
	case LongPtr:
		return Long, nil
	}
	return None, fmt.Errorf("internal error: can't dereference type %v", t)
}

// LiteralType is the narrowest type holding an integer literal.
func LiteralType(v int64) Type {
	switch {
	case v >= 0 && v < 256:
		return Char
	case v >= -1<<31 && v < 1<<31:
		return Int
	}
	return Long
}

// ScaleShift reports the left shift equivalent to multiplying by size
// when size is 2, 4 or 8.
func ScaleShift(size int) (int, bool) {
	switch size {
	case 2, 4, 8:
		return mathutil.BitLen(size) - 1, true
	}
	return 0, false
}
