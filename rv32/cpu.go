package rv32

import "fmt"

// CPU drives a single hart: it seeds the stack pointer, runs the tick loop
// and prints the end-of-run accounting lines.
type CPU struct {
	*Hart
}

// NewCPU returns a CPU wrapping a fresh hart on mem.
func NewCPU(mem *Memory) *CPU {
	return &CPU{Hart: NewHart(mem)}
}

// Run executes instructions until the hart halts, or until execLimit
// instructions have run when execLimit is non-zero. Register x2 is set to
// the memory size before the first tick. On halt the reason is reported;
// the instruction count is reported unconditionally.
func (c *CPU) Run(execLimit uint64) {
	c.regs.Set(2, int32(c.mem.Size()))

	if execLimit == 0 {
		for !c.Halted() {
			c.Tick("")
		}
	} else {
		for !c.Halted() && c.InsnCounter() < execLimit {
			c.Tick("")
		}
	}

	if c.Halted() {
		fmt.Fprintf(c.out, "Execution terminated. Reason: %s\n", c.HaltReason())
	}
	fmt.Fprintf(c.out, "%d instructions executed\n", c.InsnCounter())
}
