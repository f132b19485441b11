// Package main provides the entry point for legv8, the LEGv8 assembler
// and functional VM.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/archsim/legv8/assembler"
	"github.com/archsim/legv8/diag"
	"github.com/archsim/legv8/emu"
)

var (
	help        = flag.Bool("help", false, "print help, exit 0")
	zeroPage    = flag.Bool("zero-page", false, "enable 4096-byte zero page")
	limitErrors = flag.Bool("limit-errors", false, "cap diagnostics at 3, suffix with \"(N errors omitted)\"")
	debugFlag   = flag.Bool("debug", false, "enter debugger REPL")
	stdio       = flag.Bool("stdio", false, "run the LSP on stdin/stdout")
)

func init() {
	flag.BoolVar(help, "h", false, "print help, exit 0")
	flag.BoolVar(zeroPage, "z", false, "enable 4096-byte zero page")
	flag.BoolVar(limitErrors, "l", false, "cap diagnostics at 3, suffix with \"(N errors omitted)\"")
	flag.BoolVar(debugFlag, "d", false, "enter debugger REPL")
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: legv8 [options] <file>\n\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	if *stdio {
		fmt.Fprintln(os.Stderr, "legv8: --stdio (LSP mode) is not implemented")
		os.Exit(1)
	}
	if *debugFlag {
		fmt.Fprintln(os.Stderr, "legv8: --debug (debugger REPL) is not implemented; use SetBreakpoint/ClearBreakpoint programmatically")
		os.Exit(1)
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	path := flag.Arg(0)
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "legv8: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(path, string(source)))
}

func run(path, source string) int {
	prog, errs := assembler.Assemble(path, source)

	limit := 0
	if *limitErrors {
		limit = 3
	}
	f := diag.NewFormatter(limit)

	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, f.AssembleErrors(prog.File, errs))
		return 1
	}

	var opts []emu.EmulatorOption
	if *zeroPage {
		opts = append(opts, emu.WithZeroPage(true))
	}
	e := emu.NewEmulator(prog.Bytes(), opts...)

	for {
		result := e.Step()
		if result.Err != nil {
			fmt.Fprintln(os.Stderr, f.Exception(prog, result.Err))
			return 1
		}
		if result.Exited {
			return int(result.ExitCode)
		}
	}
}
