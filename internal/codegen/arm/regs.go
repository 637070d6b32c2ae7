package arm

import (
	"fmt"

	"github.com/tinyrange/minicc/internal/codegen"
	"github.com/tinyrange/minicc/internal/types"
)

// Scratch registers. r4-r7 are callee-saved and pushed by every
// prologue; r0-r3 are only touched around calls, r3 and ip also serve
// as temporaries for literals and addresses.
var reglist = []string{"r4", "r5", "r6", "r7"}

var argRegs = []string{"r0", "r1", "r2", "r3"}

func (b *Backend) alloc() (codegen.Reg, error) { return b.regs.Alloc() }
func (b *Backend) free(r codegen.Reg) error    { return b.regs.Free(r) }

func check(r codegen.Reg) error {
	if r < 0 || int(r) >= len(reglist) {
		return fmt.Errorf("internal error: bad register %d", r)
	}
	return nil
}

// Registers hold 32 bits. A char moves with the byte forms, everything
// else with whole words.
func ldr(t types.Type) string {
	if t == types.Char {
		return "ldrb"
	}
	return "ldr"
}

func str(t types.Type) string {
	if t == types.Char {
		return "strb"
	}
	return "str"
}
