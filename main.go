package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hartlab/rv32sim/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "rv32sim"
	app.Usage = "RV32I single-hart simulator and disassembler"
	app.HideHelp = true
	app.HideHelpCommand = true
	app.Flags = cmd.RunFlags
	app.Action = cmd.Run
	app.OnUsageError = func(ctx *cli.Context, err error, isSubcommand bool) error {
		return cmd.Usage()
	}

	// cli.Exit errors carry their status through app.Run; anything else
	// still means a failed run.
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
