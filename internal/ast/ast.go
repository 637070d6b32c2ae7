package ast

import (
	"fmt"

	"github.com/tinyrange/minicc/internal/types"
)

// Op is the operation a node performs.
type Op int

const (
	ADD Op = iota + 1
	SUBTRACT
	MULTIPLY
	DIVIDE
	EQ
	NE
	LT
	GT
	LE
	GE
	OR
	XOR
	AND
	LSHIFT
	RSHIFT
	LOGOR
	LOGAND

	INTLIT
	STRLIT
	IDENT
	ADDR
	DEREF
	ASSIGN
	WIDEN
	SCALE

	PREINC
	PREDEC
	POSTINC
	POSTDEC
	NEGATE
	INVERT
	LOGNOT
	TOBOOL

	FUNCCALL
	FUNCTION
	IF
	WHILE
	RETURN
	PRINT
	GLUE
)

var opNames = map[Op]string{
	ADD: "ADD", SUBTRACT: "SUBTRACT", MULTIPLY: "MULTIPLY", DIVIDE: "DIVIDE",
	EQ: "EQ", NE: "NE", LT: "LT", GT: "GT", LE: "LE", GE: "GE",
	OR: "OR", XOR: "XOR", AND: "AND", LSHIFT: "LSHIFT", RSHIFT: "RSHIFT",
	LOGOR: "LOGOR", LOGAND: "LOGAND",
	INTLIT: "INTLIT", STRLIT: "STRLIT", IDENT: "IDENT", ADDR: "ADDR", DEREF: "DEREF",
	ASSIGN: "ASSIGN", WIDEN: "WIDEN", SCALE: "SCALE",
	PREINC: "PREINC", PREDEC: "PREDEC", POSTINC: "POSTINC", POSTDEC: "POSTDEC",
	NEGATE: "NEGATE", INVERT: "INVERT", LOGNOT: "LOGNOT", TOBOOL: "TOBOOL",
	FUNCCALL: "FUNCCALL", FUNCTION: "FUNCTION", IF: "IF", WHILE: "WHILE",
	RETURN: "RETURN", PRINT: "PRINT", GLUE: "GLUE",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// IsComparison reports whether op is one of the six relational
// operators.
func IsComparison(op Op) bool { return op >= EQ && op <= GE }

// Node is one vertex of an expression or statement tree.
type Node struct {
	Op   Op
	Type types.Type
	// RValue is set when the node's value is needed, as opposed to the
	// node naming a place to store into.
	RValue bool

	Left  *Node
	Mid   *Node // IF only: the true branch
	Right *Node

	// IntValue is the literal value of INTLIT, the element size of
	// SCALE and the 1-based argument position of an argument GLUE.
	IntValue int64
	// ID is the symbol slot of IDENT, ADDR, FUNCCALL and FUNCTION
	// nodes, and the data label of STRLIT.
	ID int
	// Line is the source line a statement started on, zero elsewhere.
	Line int
}

func New(op Op, typ types.Type, left, mid, right *Node, intValue int64) *Node {
	return &Node{Op: op, Type: typ, Left: left, Mid: mid, Right: right, IntValue: intValue}
}

func NewLeaf(op Op, typ types.Type, intValue int64) *Node {
	return New(op, typ, nil, nil, nil, intValue)
}

func NewUnary(op Op, typ types.Type, left *Node, intValue int64) *Node {
	return New(op, typ, left, nil, nil, intValue)
}

// NewSymbol returns a leaf or unary node referring to a symbol slot or
// string label.
func NewSymbol(op Op, typ types.Type, left *Node, id int) *Node {
	n := New(op, typ, left, nil, nil, 0)
	n.ID = id
	return n
}

// Convert applies the coercion c to n so that it can be combined with
// a value of type to. Scaling by one leaves n untouched.
func Convert(n *Node, c types.Coercion, to types.Type) (*Node, error) {
	switch c {
	case types.Keep:
		return n, nil
	case types.Widen:
		return NewUnary(WIDEN, to, n, 0), nil
	case types.Scale:
		elem, err := types.ValueAt(to)
		if err != nil {
			return nil, err
		}
		if size := elem.Size(); size > 1 {
			return NewUnary(SCALE, to, n, int64(size)), nil
		}
		return n, nil
	}
	return nil, fmt.Errorf("internal error: unknown coercion %v", c)
}
