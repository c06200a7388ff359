package rv32

import (
	"fmt"
	"io"
)

// Disassemble writes a full listing of m to w, one line per 32-bit word:
// the address, the instruction word, and its decoded rendering. The walk
// covers the entire memory regardless of what was loaded into it.
func Disassemble(m *Memory, w io.Writer) {
	for addr := uint32(0); addr < m.Size(); addr += 4 {
		insn := m.Get32(addr)
		fmt.Fprintf(w, "%s: %s  %s\n", ToHex32(addr), ToHex32(insn), Decode(addr, insn))
	}
}
