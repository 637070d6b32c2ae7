package codegen

import (
	"errors"
	"fmt"
)

// Reg names one scratch register of a backend's pool.
type Reg int

// NoReg is returned by operations that produce no value.
const NoReg Reg = -1

var ErrNoRegisters = errors.New("out of registers")

// Registers is a fixed pool of scratch registers. Allocation always
// hands out the lowest free register, so generated code is
// deterministic.
type Registers struct {
	free []bool
}

func NewRegisters(n int) *Registers {
	r := &Registers{free: make([]bool, n)}
	r.FreeAll()
	return r
}

func (r *Registers) Alloc() (Reg, error) {
	for i, free := range r.free {
		if free {
			r.free[i] = false
			return Reg(i), nil
		}
	}
	return NoReg, ErrNoRegisters
}

func (r *Registers) Free(reg Reg) error {
	if reg < 0 || int(reg) >= len(r.free) || r.free[reg] {
		return fmt.Errorf("internal error: trying to free register %d", reg)
	}
	r.free[reg] = true
	return nil
}

func (r *Registers) FreeAll() {
	for i := range r.free {
		r.free[i] = true
	}
}

func (r *Registers) Size() int { return len(r.free) }

func (r *Registers) Available() int {
	n := 0
	for _, free := range r.free {
		if free {
			n++
		}
	}
	return n
}

// InUse lists the allocated registers in ascending order.
func (r *Registers) InUse() []Reg {
	var out []Reg
	for i, free := range r.free {
		if !free {
			out = append(out, Reg(i))
		}
	}
	return out
}
