package rv32

import (
	"fmt"
	"strings"
)

// Opcode values of the supported instruction classes (bits [6:0]).
const (
	OpcodeLUI    = 0b0110111
	OpcodeAUIPC  = 0b0010111
	OpcodeJAL    = 0b1101111
	OpcodeJALR   = 0b1100111
	OpcodeBranch = 0b1100011
	OpcodeLoad   = 0b0000011
	OpcodeStore  = 0b0100011
	OpcodeALUImm = 0b0010011
	OpcodeALUReg = 0b0110011
	OpcodeSystem = 0b1110011
)

// Exact instruction words of the two funct3=0 system instructions.
const (
	InsnECALL  = 0x00000073
	InsnEBREAK = 0x00100073
)

// funct7 values discriminating the shift/arith variants.
const (
	funct7Base = 0b0000000
	funct7Alt  = 0b0100000
)

const mnemonicWidth = 8

// illegalInsn is the rendering of any unmatched encoding.
const illegalInsn = "ERROR: UNIMPLEMENTED INSTRUCTION"

// Field extractors, per the base ISA encoding.

func ParseOpcode(insn uint32) uint32 { return insn & 0x7f }
func ParseRd(insn uint32) uint32     { return (insn >> 7) & 0x1f }
func ParseFunct3(insn uint32) uint32 { return (insn >> 12) & 0x7 }
func ParseRs1(insn uint32) uint32    { return (insn >> 15) & 0x1f }
func ParseRs2(insn uint32) uint32    { return (insn >> 20) & 0x1f }
func ParseFunct7(insn uint32) uint32 { return (insn >> 25) & 0x7f }

// ParseCSR returns the CSR address held in the top 12 bits of insn.
func ParseCSR(insn uint32) uint32 { return insn >> 20 }

// ImmTypeI reassembles the I-type immediate, sign-extended from bit 11.
func ImmTypeI(insn uint32) int32 {
	return int32(insn) >> 20
}

// ImmTypeU returns the U-type immediate: bits [31:12] of insn with the low
// 12 bits zero. No further sign extension is needed.
func ImmTypeU(insn uint32) int32 {
	return int32(insn & 0xfffff000)
}

// ImmTypeS reassembles the S-type immediate, sign-extended from bit 11.
func ImmTypeS(insn uint32) int32 {
	imm := (insn>>25)<<5 | (insn>>7)&0x1f
	return int32(imm<<20) >> 20
}

// ImmTypeB reassembles the B-type branch offset, sign-extended from bit 12.
// Bit 0 of the result is always zero.
func ImmTypeB(insn uint32) int32 {
	imm := (insn>>31)&0x1<<12 |
		(insn>>7)&0x1<<11 |
		(insn>>25)&0x3f<<5 |
		(insn>>8)&0xf<<1
	return int32(imm<<19) >> 19
}

// ImmTypeJ reassembles the J-type jump offset, sign-extended from bit 20.
// Bit 0 of the result is always zero.
func ImmTypeJ(insn uint32) int32 {
	imm := (insn>>31)&0x1<<20 |
		(insn>>12)&0xff<<12 |
		(insn>>20)&0x1<<11 |
		(insn>>21)&0x3ff<<1
	return int32(imm<<11) >> 11
}

// Decode disassembles one instruction word fetched from addr into its
// canonical rendering. Branch and jump targets are rendered as absolute
// addresses computed against addr. Unmatched encodings render as the fixed
// illegal-instruction string.
func Decode(addr, insn uint32) string {
	switch ParseOpcode(insn) {
	case OpcodeLUI:
		return renderUType(insn, "lui")
	case OpcodeAUIPC:
		return renderUType(insn, "auipc")
	case OpcodeJAL:
		return renderJAL(addr, insn)
	case OpcodeJALR:
		return renderJALR(insn)

	case OpcodeBranch:
		switch ParseFunct3(insn) {
		case 0b000:
			return renderBType(addr, insn, "beq")
		case 0b001:
			return renderBType(addr, insn, "bne")
		case 0b100:
			return renderBType(addr, insn, "blt")
		case 0b101:
			return renderBType(addr, insn, "bge")
		case 0b110:
			return renderBType(addr, insn, "bltu")
		case 0b111:
			return renderBType(addr, insn, "bgeu")
		default:
			return illegalInsn
		}

	case OpcodeLoad:
		switch ParseFunct3(insn) {
		case 0b000:
			return renderITypeLoad(insn, "lb")
		case 0b001:
			return renderITypeLoad(insn, "lh")
		case 0b010:
			return renderITypeLoad(insn, "lw")
		case 0b100:
			return renderITypeLoad(insn, "lbu")
		case 0b101:
			return renderITypeLoad(insn, "lhu")
		default:
			return illegalInsn
		}

	case OpcodeStore:
		switch ParseFunct3(insn) {
		case 0b000:
			return renderSType(insn, "sb")
		case 0b001:
			return renderSType(insn, "sh")
		case 0b010:
			return renderSType(insn, "sw")
		default:
			return illegalInsn
		}

	case OpcodeALUImm:
		switch ParseFunct3(insn) {
		case 0b000:
			return renderITypeALU(insn, "addi", ImmTypeI(insn))
		case 0b010:
			return renderITypeALU(insn, "slti", ImmTypeI(insn))
		case 0b011:
			return renderITypeALU(insn, "sltiu", ImmTypeI(insn))
		case 0b100:
			return renderITypeALU(insn, "xori", ImmTypeI(insn))
		case 0b110:
			return renderITypeALU(insn, "ori", ImmTypeI(insn))
		case 0b111:
			return renderITypeALU(insn, "andi", ImmTypeI(insn))
		case 0b001:
			if ParseFunct7(insn) == funct7Base {
				return renderITypeALU(insn, "slli", ImmTypeI(insn)&0x1f)
			}
			return illegalInsn
		case 0b101:
			switch ParseFunct7(insn) {
			case funct7Base:
				return renderITypeALU(insn, "srli", ImmTypeI(insn)&0x1f)
			case funct7Alt:
				return renderITypeALU(insn, "srai", ImmTypeI(insn)&0x1f)
			}
			return illegalInsn
		default:
			return illegalInsn
		}

	case OpcodeALUReg:
		// funct7 0100000 is only valid for sub and sra; all others need 0000000.
		if f3, f7 := ParseFunct3(insn), ParseFunct7(insn); f7 != funct7Base &&
			!(f7 == funct7Alt && (f3 == 0b000 || f3 == 0b101)) {
			return illegalInsn
		}
		switch ParseFunct3(insn) {
		case 0b000:
			switch ParseFunct7(insn) {
			case funct7Base:
				return renderRType(insn, "add")
			case funct7Alt:
				return renderRType(insn, "sub")
			}
			return illegalInsn
		case 0b001:
			return renderRType(insn, "sll")
		case 0b010:
			return renderRType(insn, "slt")
		case 0b011:
			return renderRType(insn, "sltu")
		case 0b100:
			return renderRType(insn, "xor")
		case 0b101:
			switch ParseFunct7(insn) {
			case funct7Base:
				return renderRType(insn, "srl")
			case funct7Alt:
				return renderRType(insn, "sra")
			}
			return illegalInsn
		case 0b110:
			return renderRType(insn, "or")
		case 0b111:
			return renderRType(insn, "and")
		default:
			return illegalInsn
		}

	case OpcodeSystem:
		switch ParseFunct3(insn) {
		case 0b000:
			switch insn {
			case InsnECALL:
				return renderMnemonic("ecall")
			case InsnEBREAK:
				return renderMnemonic("ebreak")
			}
			return illegalInsn
		case 0b001:
			return renderCSRReg(insn, "csrrw")
		case 0b010:
			return renderCSRReg(insn, "csrrs")
		case 0b011:
			return renderCSRReg(insn, "csrrc")
		case 0b101:
			return renderCSRImm(insn, "csrrwi")
		case 0b110:
			return renderCSRImm(insn, "csrrsi")
		case 0b111:
			return renderCSRImm(insn, "csrrci")
		default:
			return illegalInsn
		}

	default:
		return illegalInsn
	}
}

// renderMnemonic pads the mnemonic to mnemonicWidth characters, except for
// ecall and ebreak which are emitted bare.
func renderMnemonic(mnemonic string) string {
	if mnemonic == "ecall" || mnemonic == "ebreak" {
		return mnemonic
	}
	if len(mnemonic) < mnemonicWidth {
		return mnemonic + strings.Repeat(" ", mnemonicWidth-len(mnemonic))
	}
	return mnemonic
}

func renderReg(r uint32) string {
	return fmt.Sprintf("x%d", r)
}

func renderBaseDisp(rs1 uint32, imm int32) string {
	return fmt.Sprintf("%d(%s)", imm, renderReg(rs1))
}

// renderUType renders lui/auipc with the immediate shown as the 20-bit
// upper value (imm >> 12).
func renderUType(insn uint32, mnemonic string) string {
	rd := ParseRd(insn)
	imm20 := uint32(ImmTypeU(insn)) >> 12
	return renderMnemonic(mnemonic) + renderReg(rd) + "," + ToHex0x20(imm20)
}

func renderJAL(addr, insn uint32) string {
	rd := ParseRd(insn)
	target := addr + uint32(ImmTypeJ(insn))
	return renderMnemonic("jal") + renderReg(rd) + "," + ToHex0x32(target)
}

func renderJALR(insn uint32) string {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	return renderMnemonic("jalr") + renderReg(rd) + "," + renderBaseDisp(rs1, ImmTypeI(insn))
}

func renderBType(addr, insn uint32, mnemonic string) string {
	rs1 := ParseRs1(insn)
	rs2 := ParseRs2(insn)
	target := addr + uint32(ImmTypeB(insn))
	return renderMnemonic(mnemonic) + renderReg(rs1) + "," + renderReg(rs2) + "," + ToHex0x32(target)
}

func renderITypeLoad(insn uint32, mnemonic string) string {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	return renderMnemonic(mnemonic) + renderReg(rd) + "," + renderBaseDisp(rs1, ImmTypeI(insn))
}

func renderSType(insn uint32, mnemonic string) string {
	rs1 := ParseRs1(insn)
	rs2 := ParseRs2(insn)
	return renderMnemonic(mnemonic) + renderReg(rs2) + "," + renderBaseDisp(rs1, ImmTypeS(insn))
}

func renderITypeALU(insn uint32, mnemonic string, imm int32) string {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	return fmt.Sprintf("%s%s,%s,%d", renderMnemonic(mnemonic), renderReg(rd), renderReg(rs1), imm)
}

func renderRType(insn uint32, mnemonic string) string {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	rs2 := ParseRs2(insn)
	return renderMnemonic(mnemonic) + renderReg(rd) + "," + renderReg(rs1) + "," + renderReg(rs2)
}

func renderCSRReg(insn uint32, mnemonic string) string {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	return renderMnemonic(mnemonic) + renderReg(rd) + "," + ToHex0x12(ParseCSR(insn)) + "," + renderReg(rs1)
}

func renderCSRImm(insn uint32, mnemonic string) string {
	rd := ParseRd(insn)
	zimm := ParseRs1(insn)
	return fmt.Sprintf("%s%s,%s,%d", renderMnemonic(mnemonic), renderReg(rd), ToHex0x12(ParseCSR(insn)), zimm)
}
