package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/hartlab/rv32sim/rv32"
)

var (
	DisasmFlag = &cli.BoolFlag{
		Name:  "d",
		Usage: "show disassembly before program execution",
	}
	ShowInsnFlag = &cli.BoolFlag{
		Name:  "i",
		Usage: "show instruction printing during execution",
	}
	ShowRegsFlag = &cli.BoolFlag{
		Name:  "r",
		Usage: "show register printing during execution",
	}
	DumpFlag = &cli.BoolFlag{
		Name:  "z",
		Usage: "show a dump of the regs & memory after simulation",
	}
	ExecLimitFlag = &cli.Uint64Flag{
		Name:  "l",
		Usage: "maximum number of instructions to exec",
	}
	MemSizeFlag = &cli.StringFlag{
		Name:  "m",
		Usage: "specify memory size (default = 0x100)",
		Value: "100",
	}
	VerboseFlag = &cli.BoolFlag{
		Name:  "v",
		Usage: "enable verbose operational logging on stderr",
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:   "pprof.cpu",
		Hidden: true,
	}
)

var RunFlags = []cli.Flag{
	DisasmFlag,
	ShowInsnFlag,
	ShowRegsFlag,
	DumpFlag,
	ExecLimitFlag,
	MemSizeFlag,
	VerboseFlag,
	PProfCPUFlag,
}

// Usage writes the usage banner to stderr and returns the exit-status-1
// error the app propagates.
func Usage() error {
	fmt.Fprintln(os.Stderr, "Usage: rv32sim [-d] [-i] [-r] [-z] [-l exec-limit] [-m hex-mem-size] infile")
	fmt.Fprintln(os.Stderr, "  -d show disassembly before program execution")
	fmt.Fprintln(os.Stderr, "  -i show instruction printing during execution")
	fmt.Fprintln(os.Stderr, "  -l maximum number of instructions to exec")
	fmt.Fprintln(os.Stderr, "  -m specify memory size (default = 0x100)")
	fmt.Fprintln(os.Stderr, "  -r show register printing during execution")
	fmt.Fprintln(os.Stderr, "  -z show a dump of the regs & memory after simulation")
	return cli.Exit("", 1)
}

// parseMemSize interprets s as a hex byte count, with or without a 0x prefix.
func parseMemSize(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("memory size %q: %w", s, err)
	}
	return uint32(v), nil
}

func Run(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	lvl := log.LevelError
	if ctx.Bool(VerboseFlag.Name) {
		lvl = log.LevelDebug
	}
	l := Logger(os.Stderr, lvl)

	if ctx.NArg() != 1 {
		return Usage()
	}
	infile := ctx.Args().First()

	memSize, err := parseMemSize(ctx.String(MemSizeFlag.Name))
	if err != nil {
		l.Error("bad memory size", "err", err)
		return Usage()
	}

	mem := rv32.NewMemory(memSize)
	l.Debug("memory created", "size", HexU32(mem.Size()))

	if err := mem.LoadFile(infile); err != nil {
		// the load already reported the failure on stderr
		return cli.Exit("", 1)
	}
	l.Debug("image loaded", "file", infile)

	if ctx.Bool(DisasmFlag.Name) {
		rv32.Disassemble(mem, os.Stdout)
	}

	cpu := rv32.NewCPU(mem)
	cpu.Reset()
	cpu.SetShowInstructions(ctx.Bool(ShowInsnFlag.Name))
	cpu.SetShowRegisters(ctx.Bool(ShowRegsFlag.Name))

	execLimit := ctx.Uint64(ExecLimitFlag.Name)
	l.Debug("starting run", "execLimit", execLimit)
	cpu.Run(execLimit)
	l.Debug("run complete",
		"instructions", cpu.InsnCounter(),
		"pc", HexU32(cpu.PC()),
		"reason", cpu.HaltReason())

	if ctx.Bool(DumpFlag.Name) {
		cpu.Dump()
		mem.Dump(os.Stdout)
	}
	return nil
}
