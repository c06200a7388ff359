package rv32

import "fmt"

// Canonical hex renderings used by the trace, dump and disassembly output.
// Widths and prefixes are part of the output contract, so everything funnels
// through these helpers instead of ad-hoc format strings.

// ToHex8 formats v as exactly 2 lowercase hex digits.
func ToHex8(v uint8) string {
	return fmt.Sprintf("%02x", v)
}

// ToHex32 formats v as exactly 8 lowercase hex digits.
func ToHex32(v uint32) string {
	return fmt.Sprintf("%08x", v)
}

// ToHex0x32 formats v as "0x" followed by exactly 8 lowercase hex digits.
func ToHex0x32(v uint32) string {
	return "0x" + ToHex32(v)
}

// ToHex0x20 formats the low 20 bits of v as "0x" followed by 5 hex digits.
func ToHex0x20(v uint32) string {
	return fmt.Sprintf("0x%05x", v&0x000fffff)
}

// ToHex0x12 formats the low 12 bits of v as "0x" followed by 3 hex digits.
func ToHex0x12(v uint32) string {
	return fmt.Sprintf("0x%03x", v&0x00000fff)
}
