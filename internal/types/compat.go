package types

// Coercion is the adjustment one operand needs before two values can
// be combined.
type Coercion int

const (
	Keep  Coercion = iota // use as is
	Widen                 // extend to the other operand's size
	Scale                 // multiply by the other operand's pointee size
)

func (c Coercion) String() string {
	switch c {
	case Widen:
		return "widen"
	case Scale:
		return "scale"
	}
	return "keep"
}

// Mode is the context two types are being combined in.
type Mode int

const (
	Binary   Mode = iota // any binary operator except + and -
	Additive             // + and -
	Assign               // left is the target, right the value stored
)

// Compatible decides whether values of type left and right can be
// combined in the given mode, and which side needs which coercion.
// Integer pairs always combine by widening the narrower side, except in
// Assign mode where a value wider than its target is rejected. Under
// Additive a pointer and an integer combine by scaling the integer.
func Compatible(left, right Type, mode Mode) (lc, rc Coercion, ok bool) {
	if left == Void || right == Void || left == None || right == None {
		return Keep, Keep, false
	}
	if left == right {
		return Keep, Keep, true
	}
	if left.IsInt() && right.IsInt() {
		ls, rs := left.Size(), right.Size()
		switch {
		case ls < rs && mode == Assign:
			return Keep, Keep, false
		case ls < rs:
			return Widen, Keep, true
		default:
			return Keep, Widen, true
		}
	}
	if mode == Additive {
		if left.IsInt() && right.IsPtr() {
			return Scale, Keep, true
		}
		if left.IsPtr() && right.IsInt() {
			return Keep, Scale, true
		}
	}
	return Keep, Keep, false
}
