package rv32

import (
	"fmt"
	"io"
	"os"
)

// insnWidth is the column the trace comment starts at: the rendered
// instruction is left-justified in a field this wide.
const insnWidth = 35

// numCSRs covers the full 12-bit CSR address space.
const numCSRs = 4096

// Hart is the execution unit of a single RV32I core. It owns the register
// file, the program counter and the CSR bank, and executes instructions
// fetched from the memory it was constructed with. Tracing of instructions
// and register state is controlled by flags; all trace output goes to the
// hart's output sink.
type Hart struct {
	regs RegisterFile
	mem  *Memory
	csr  [numCSRs]uint32

	pc          uint32
	mhartid     uint32
	insnCounter uint64

	halted     bool
	haltReason string

	showInstructions bool
	showRegisters    bool

	out io.Writer
}

// NewHart returns a hart executing from mem, writing trace output to stdout.
func NewHart(mem *Memory) *Hart {
	return &Hart{mem: mem, haltReason: "none", out: os.Stdout}
}

// SetOutput redirects the hart's trace, dump and accounting output to w.
func (h *Hart) SetOutput(w io.Writer) { h.out = w }

// SetShowInstructions enables the per-instruction trace line.
func (h *Hart) SetShowInstructions(b bool) { h.showInstructions = b }

// SetShowRegisters enables a full register dump before every instruction.
func (h *Hart) SetShowRegisters(b bool) { h.showRegisters = b }

// SetMhartID sets the hart's ID. Only ever zero in a single-hart CPU.
func (h *Hart) SetMhartID(id uint32) { h.mhartid = id }

// Halted reports whether the hart has stopped executing.
func (h *Hart) Halted() bool { return h.halted }

// HaltReason returns why the hart stopped, or "none" while it is running.
func (h *Hart) HaltReason() string { return h.haltReason }

// InsnCounter returns the number of instructions executed since reset.
func (h *Hart) InsnCounter() uint64 { return h.insnCounter }

// PC returns the current program counter.
func (h *Hart) PC() uint32 { return h.pc }

// Reset returns the hart to its power-on state: pc and counters zeroed,
// registers reset, CSRs cleared, halt state withdrawn.
func (h *Hart) Reset() {
	h.pc = 0
	h.insnCounter = 0
	h.halted = false
	h.haltReason = "none"
	h.mhartid = 0
	h.regs.Reset()
	for i := range h.csr {
		h.csr[i] = 0
	}
}

// Dump prints the register file as four rows of eight values followed by the
// pc. Values are separated by single spaces with a double space after the
// fourth of each row.
func (h *Hart) Dump() {
	labels := []string{" x0 ", " x8 ", "x16 ", "x24 "}
	for row, label := range labels {
		fmt.Fprint(h.out, label)
		for i := 0; i < 8; i++ {
			fmt.Fprint(h.out, ToHex32(uint32(h.regs.Get(uint32(row*8+i)))))
			if i == 3 {
				fmt.Fprint(h.out, "  ")
			} else if i < 7 {
				fmt.Fprint(h.out, " ")
			}
		}
		fmt.Fprintln(h.out)
	}
	fmt.Fprintf(h.out, " pc %s\n", ToHex32(h.pc))
}

// Tick executes one instruction. A halted hart does nothing. A misaligned pc
// halts the hart without counting an instruction. Otherwise the instruction
// counter advances, the word at pc is fetched and executed, and, if enabled,
// a trace line prefixed with hdr is emitted.
func (h *Hart) Tick(hdr string) {
	if h.halted {
		return
	}
	if h.showRegisters {
		h.Dump()
	}
	if h.pc&0x3 != 0 {
		h.halted = true
		h.haltReason = "PC alignment error"
		return
	}
	h.insnCounter++
	insn := h.mem.Get32(h.pc)
	if h.showInstructions {
		fmt.Fprintf(h.out, "%s%s: %s  ", hdr, ToHex0x32(h.pc), ToHex32(insn))
		h.exec(insn, h.out)
		fmt.Fprintln(h.out)
	} else {
		h.exec(insn, nil)
	}
}

// exec dispatches insn to its handler. When pos is non-nil the handler also
// writes the rendered instruction and a semantic comment to it; the state
// change is identical either way.
func (h *Hart) exec(insn uint32, pos io.Writer) {
	switch ParseOpcode(insn) {
	case OpcodeLUI:
		h.execLUI(insn, pos)
	case OpcodeAUIPC:
		h.execAUIPC(insn, pos)
	case OpcodeJAL:
		h.execJAL(insn, pos)
	case OpcodeJALR:
		h.execJALR(insn, pos)
	case OpcodeALUImm:
		h.execALUImm(insn, pos)
	case OpcodeALUReg:
		h.execALUReg(insn, pos)
	case OpcodeLoad:
		h.execLoad(insn, pos)
	case OpcodeStore:
		h.execStore(insn, pos)
	case OpcodeBranch:
		h.execBranch(insn, pos)
	case OpcodeSystem:
		h.execSystem(insn, pos)
	default:
		h.execIllegal(insn, pos)
	}
}

func (h *Hart) execSystem(insn uint32, pos io.Writer) {
	switch ParseFunct3(insn) {
	case 0b000:
		switch insn {
		case InsnECALL:
			h.execECALL(pos)
		case InsnEBREAK:
			h.execEBREAK(pos)
		default:
			h.execIllegal(insn, pos)
		}
	case 0b001:
		h.execCSRReg(insn, pos, "csrrw")
	case 0b010:
		h.execCSRReg(insn, pos, "csrrs")
	case 0b011:
		h.execCSRReg(insn, pos, "csrrc")
	case 0b101:
		h.execCSRImm(insn, pos, "csrrwi")
	case 0b110:
		h.execCSRImm(insn, pos, "csrrsi")
	case 0b111:
		h.execCSRImm(insn, pos, "csrrci")
	default:
		h.execIllegal(insn, pos)
	}
}

// execIllegal halts the hart. The trace shows the fixed error string.
func (h *Hart) execIllegal(insn uint32, pos io.Writer) {
	_ = insn
	if pos != nil {
		fmt.Fprint(pos, illegalInsn)
	}
	h.halted = true
	h.haltReason = "Illegal instruction"
}

func traceInsn(pos io.Writer, rendering string) {
	fmt.Fprintf(pos, "%-*s", insnWidth, rendering)
}

func (h *Hart) execLUI(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	val := ImmTypeU(insn)
	if pos != nil {
		traceInsn(pos, renderUType(insn, "lui"))
		fmt.Fprintf(pos, "// %s = %s", renderReg(rd), ToHex0x32(uint32(val)))
	}
	h.regs.Set(rd, val)
	h.pc += 4
}

func (h *Hart) execAUIPC(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	imm := ImmTypeU(insn)
	val := h.pc + uint32(imm)
	if pos != nil {
		traceInsn(pos, renderUType(insn, "auipc"))
		fmt.Fprintf(pos, "// %s = %s + %s = %s",
			renderReg(rd), ToHex0x32(h.pc), ToHex0x32(uint32(imm)), ToHex0x32(val))
	}
	h.regs.Set(rd, int32(val))
	h.pc += 4
}

func (h *Hart) execJAL(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	target := h.pc + uint32(ImmTypeJ(insn))
	retaddr := h.pc + 4
	if pos != nil {
		traceInsn(pos, renderJAL(h.pc, insn))
		fmt.Fprintf(pos, "// %s = %s,  pc = %s",
			renderReg(rd), ToHex0x32(retaddr), ToHex0x32(target))
	}
	h.regs.Set(rd, int32(retaddr))
	h.pc = target
}

func (h *Hart) execJALR(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	target := (uint32(h.regs.Get(rs1)) + uint32(ImmTypeI(insn))) &^ 1
	retaddr := h.pc + 4
	if pos != nil {
		traceInsn(pos, renderJALR(insn))
		fmt.Fprintf(pos, "// %s = %s,  pc = %s",
			renderReg(rd), ToHex0x32(retaddr), ToHex0x32(target))
	}
	h.regs.Set(rd, int32(retaddr))
	h.pc = target
}

func (h *Hart) execALUImm(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	rs1Val := h.regs.Get(ParseRs1(insn))
	imm := ImmTypeI(insn)

	var mnemonic string
	var result int32
	shownImm := imm

	switch ParseFunct3(insn) {
	case 0b000:
		mnemonic = "addi"
		result = rs1Val + imm
	case 0b010:
		mnemonic = "slti"
		if rs1Val < imm {
			result = 1
		}
	case 0b011:
		mnemonic = "sltiu"
		if uint32(rs1Val) < uint32(imm) {
			result = 1
		}
	case 0b100:
		mnemonic = "xori"
		result = rs1Val ^ imm
	case 0b110:
		mnemonic = "ori"
		result = rs1Val | imm
	case 0b111:
		mnemonic = "andi"
		result = rs1Val & imm
	case 0b001:
		if ParseFunct7(insn) != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "slli"
		shownImm = imm & 0x1f
		result = int32(uint32(rs1Val) << uint(shownImm))
	case 0b101:
		shownImm = imm & 0x1f
		switch ParseFunct7(insn) {
		case funct7Base:
			mnemonic = "srli"
			result = int32(uint32(rs1Val) >> uint(shownImm))
		case funct7Alt:
			mnemonic = "srai"
			result = rs1Val >> uint(shownImm)
		default:
			h.execIllegal(insn, pos)
			return
		}
	default:
		h.execIllegal(insn, pos)
		return
	}

	if pos != nil {
		traceInsn(pos, renderITypeALU(insn, mnemonic, shownImm))
		fmt.Fprintf(pos, "// %s = %s", renderReg(rd), ToHex0x32(uint32(result)))
	}
	h.regs.Set(rd, result)
	h.pc += 4
}

func (h *Hart) execALUReg(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	rs1Val := h.regs.Get(ParseRs1(insn))
	rs2Val := h.regs.Get(ParseRs2(insn))
	f7 := ParseFunct7(insn)

	var mnemonic string
	var result int32

	switch ParseFunct3(insn) {
	case 0b000:
		switch f7 {
		case funct7Base:
			mnemonic = "add"
			result = rs1Val + rs2Val
		case funct7Alt:
			mnemonic = "sub"
			result = rs1Val - rs2Val
		default:
			h.execIllegal(insn, pos)
			return
		}
	case 0b001:
		if f7 != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "sll"
		result = int32(uint32(rs1Val) << uint(rs2Val&0x1f))
	case 0b010:
		if f7 != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "slt"
		if rs1Val < rs2Val {
			result = 1
		}
	case 0b011:
		if f7 != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "sltu"
		if uint32(rs1Val) < uint32(rs2Val) {
			result = 1
		}
	case 0b100:
		if f7 != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "xor"
		result = rs1Val ^ rs2Val
	case 0b101:
		switch f7 {
		case funct7Base:
			mnemonic = "srl"
			result = int32(uint32(rs1Val) >> uint(rs2Val&0x1f))
		case funct7Alt:
			mnemonic = "sra"
			result = rs1Val >> uint(rs2Val&0x1f)
		default:
			h.execIllegal(insn, pos)
			return
		}
	case 0b110:
		if f7 != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "or"
		result = rs1Val | rs2Val
	case 0b111:
		if f7 != funct7Base {
			h.execIllegal(insn, pos)
			return
		}
		mnemonic = "and"
		result = rs1Val & rs2Val
	default:
		h.execIllegal(insn, pos)
		return
	}

	if pos != nil {
		traceInsn(pos, renderRType(insn, mnemonic))
		fmt.Fprintf(pos, "// %s = %s", renderReg(rd), ToHex0x32(uint32(result)))
	}
	h.regs.Set(rd, result)
	h.pc += 4
}

func (h *Hart) execLoad(insn uint32, pos io.Writer) {
	rd := ParseRd(insn)
	addr := uint32(h.regs.Get(ParseRs1(insn))) + uint32(ImmTypeI(insn))

	var mnemonic string
	var loaded int32

	switch ParseFunct3(insn) {
	case 0b000:
		mnemonic = "lb"
		loaded = h.mem.Get8SX(addr)
	case 0b001:
		mnemonic = "lh"
		loaded = h.mem.Get16SX(addr)
	case 0b010:
		mnemonic = "lw"
		loaded = h.mem.Get32SX(addr)
	case 0b100:
		mnemonic = "lbu"
		loaded = int32(uint32(h.mem.Get8(addr)))
	case 0b101:
		mnemonic = "lhu"
		loaded = int32(uint32(h.mem.Get16(addr)))
	default:
		h.execIllegal(insn, pos)
		return
	}

	if pos != nil {
		traceInsn(pos, renderITypeLoad(insn, mnemonic))
		fmt.Fprintf(pos, "// %s = mem[%s] = %s",
			renderReg(rd), ToHex0x32(addr), ToHex0x32(uint32(loaded)))
	}
	h.regs.Set(rd, loaded)
	h.pc += 4
}

func (h *Hart) execStore(insn uint32, pos io.Writer) {
	addr := uint32(h.regs.Get(ParseRs1(insn))) + uint32(ImmTypeS(insn))
	rs2Val := uint32(h.regs.Get(ParseRs2(insn)))

	var mnemonic string

	switch ParseFunct3(insn) {
	case 0b000:
		mnemonic = "sb"
		h.mem.Set8(addr, uint8(rs2Val))
	case 0b001:
		mnemonic = "sh"
		h.mem.Set16(addr, uint16(rs2Val))
	case 0b010:
		mnemonic = "sw"
		h.mem.Set32(addr, rs2Val)
	default:
		h.execIllegal(insn, pos)
		return
	}

	if pos != nil {
		traceInsn(pos, renderSType(insn, mnemonic))
		fmt.Fprintf(pos, "// mem[%s] = %s", ToHex0x32(addr), ToHex0x32(rs2Val))
	}
	h.pc += 4
}

func (h *Hart) execBranch(insn uint32, pos io.Writer) {
	rs1 := ParseRs1(insn)
	rs2 := ParseRs2(insn)
	rs1Val := h.regs.Get(rs1)
	rs2Val := h.regs.Get(rs2)
	target := h.pc + uint32(ImmTypeB(insn))

	var mnemonic string
	var take bool

	switch ParseFunct3(insn) {
	case 0b000:
		mnemonic = "beq"
		take = rs1Val == rs2Val
	case 0b001:
		mnemonic = "bne"
		take = rs1Val != rs2Val
	case 0b100:
		mnemonic = "blt"
		take = rs1Val < rs2Val
	case 0b101:
		mnemonic = "bge"
		take = rs1Val >= rs2Val
	case 0b110:
		mnemonic = "bltu"
		take = uint32(rs1Val) < uint32(rs2Val)
	case 0b111:
		mnemonic = "bgeu"
		take = uint32(rs1Val) >= uint32(rs2Val)
	default:
		h.execIllegal(insn, pos)
		return
	}

	if pos != nil {
		traceInsn(pos, renderBType(h.pc, insn, mnemonic))
		fmt.Fprintf(pos, "// %s = %s, %s = %s, ",
			renderReg(rs1), ToHex0x32(uint32(rs1Val)),
			renderReg(rs2), ToHex0x32(uint32(rs2Val)))
		if take {
			fmt.Fprintf(pos, "br_taken  pc = %s", ToHex0x32(target))
		} else {
			fmt.Fprintf(pos, "br_not_taken  pc = %s", ToHex0x32(h.pc+4))
		}
	}

	if take {
		h.pc = target
	} else {
		h.pc += 4
	}
}

func (h *Hart) execECALL(pos io.Writer) {
	if pos != nil {
		traceInsn(pos, "ecall")
		fmt.Fprint(pos, "// HALT")
	}
	h.halted = true
	h.haltReason = "ECALL instruction"
}

func (h *Hart) execEBREAK(pos io.Writer) {
	if pos != nil {
		traceInsn(pos, "ebreak")
		fmt.Fprint(pos, "// HALT")
	}
	h.halted = true
	h.haltReason = "EBREAK instruction"
}

// execCSRReg handles csrrw, csrrs and csrrc. The set and clear forms leave
// the CSR untouched when rs1 is x0.
func (h *Hart) execCSRReg(insn uint32, pos io.Writer, mnemonic string) {
	rd := ParseRd(insn)
	rs1 := ParseRs1(insn)
	csrAddr := ParseCSR(insn)
	if csrAddr >= numCSRs {
		h.execIllegal(insn, pos)
		return
	}

	oldVal := h.csr[csrAddr]
	rs1Val := uint32(h.regs.Get(rs1))
	newVal := oldVal

	switch mnemonic {
	case "csrrw":
		newVal = rs1Val
	case "csrrs":
		if rs1 != 0 {
			newVal = oldVal | rs1Val
		}
	case "csrrc":
		if rs1 != 0 {
			newVal = oldVal &^ rs1Val
		}
	}

	h.csr[csrAddr] = newVal

	if pos != nil {
		traceInsn(pos, renderCSRReg(insn, mnemonic))
		fmt.Fprintf(pos, "// csr[%s] was %s, now %s",
			ToHex0x12(csrAddr), ToHex0x32(oldVal), ToHex0x32(newVal))
		if rd != 0 {
			fmt.Fprintf(pos, "; %s = %s", renderReg(rd), ToHex0x32(oldVal))
		}
	}

	if rd != 0 {
		h.regs.Set(rd, int32(oldVal))
	}
	h.pc += 4
}

// execCSRImm handles csrrwi, csrrsi and csrrci. The set and clear forms
// leave the CSR untouched when the immediate is zero.
func (h *Hart) execCSRImm(insn uint32, pos io.Writer, mnemonic string) {
	rd := ParseRd(insn)
	zimm := ParseRs1(insn)
	csrAddr := ParseCSR(insn)
	if csrAddr >= numCSRs {
		h.execIllegal(insn, pos)
		return
	}

	oldVal := h.csr[csrAddr]
	newVal := oldVal

	switch mnemonic {
	case "csrrwi":
		newVal = zimm
	case "csrrsi":
		if zimm != 0 {
			newVal = oldVal | zimm
		}
	case "csrrci":
		if zimm != 0 {
			newVal = oldVal &^ zimm
		}
	}

	h.csr[csrAddr] = newVal

	if pos != nil {
		traceInsn(pos, renderCSRImm(insn, mnemonic))
		fmt.Fprintf(pos, "// csr[%s] was %s, now %s",
			ToHex0x12(csrAddr), ToHex0x32(oldVal), ToHex0x32(newVal))
		if rd != 0 {
			fmt.Fprintf(pos, "; %s = %s", renderReg(rd), ToHex0x32(oldVal))
		}
	}

	if rd != 0 {
		h.regs.Set(rd, int32(oldVal))
	}
	h.pc += 4
}
