package codegen

type targetKind int

const (
	targetNone targetKind = iota
	targetReg
	targetLabel
)

// Target is the extra destination information a node is generated
// with: nothing, a register holding the value to store, or the label
// a failed condition jumps to.
type Target struct {
	kind  targetKind
	reg   Reg
	label int
}

// None is the target of a node whose parent needs only its value.
var None = Target{}

func InReg(r Reg) Target      { return Target{kind: targetReg, reg: r} }
func ToLabel(l int) Target    { return Target{kind: targetLabel, label: l} }
func (t Target) IsNone() bool { return t.kind == targetNone }

func (t Target) Reg() (Reg, bool) {
	if t.kind != targetReg {
		return NoReg, false
	}
	return t.reg, true
}

func (t Target) Label() (int, bool) {
	if t.kind != targetLabel {
		return 0, false
	}
	return t.label, true
}
