// Command coldbrew is the engine's minimal front-end: a handful of
// subcommands that run a fixed set of sample programs through the
// interpreter, with or without the JIT path enabled. No external
// class-file compiler is wired in, so the sample programs come from
// internal/testprograms rather than from disk.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/clflushopt/coldbrew/internal/config"
	"github.com/clflushopt/coldbrew/internal/interp"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/testprograms"
)

// sample names one of internal/testprograms's fixtures and the top
// return value it is expected to produce.
type sample struct {
	name  string
	build func() (*program.Program, error)
	want  int32
}

var unitSamples = []sample{
	{"CompareEq", testprograms.CompareEq, 1},
	{"Remainder", testprograms.Remainder, 2},
}

var integrationSamples = []sample{
	{"SumLoop", testprograms.SumLoop, 500500},
	{"Factorial", testprograms.Factorial, 120},
	{"StaticCallInLoop", testprograms.StaticCallInLoop, 500},
}

var jitSamples = []sample{
	{"HotLoopKernel", testprograms.HotLoopKernel, 55},
}

// runSamples executes each sample to completion and reports any mismatch
// against its expected value as an error, the way the teacher's debug
// run loop prints vm.errcode on a failed program (gvm main.go
// execProgramDebugMode).
func runSamples(cfg config.Config, log *logrus.Entry, samples []sample, jitEnabled bool) error {
	for _, s := range samples {
		prog, err := s.build()
		if err != nil {
			return fmt.Errorf("%s: build: %w", s.name, err)
		}

		in := interp.New(prog, cfg.HotnessThreshold, log)
		result, err := in.Run(jitEnabled)
		if err != nil {
			return fmt.Errorf("%s: run: %w", s.name, err)
		}

		top, ok := result.Last()
		if !ok {
			return fmt.Errorf("%s: no return value observed", s.name)
		}
		status := "ok"
		if top.Int != s.want {
			status = "MISMATCH"
		}
		fmt.Printf("%-20s jit=%-5v got=%d want=%d %s\n", s.name, jitEnabled, top.Int, s.want, status)
		if top.Int != s.want {
			return fmt.Errorf("%s: got %d, want %d", s.name, top.Int, s.want)
		}
	}
	return nil
}

func runCommand(samples []sample, jitEnabled bool) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg := config.FromEnv()
		if jitEnabled {
			cfg.JITEnabled = true
		}
		log := cfg.Logger("cmd")
		return runSamples(cfg, log, samples, cfg.JITEnabled)
	}
}

func main() {
	app := &cli.App{
		Name:  "coldbrew",
		Usage: "a tracing JIT over a small stack-machine bytecode",
		// Any error reaching this handler, a failed or mismatched sample
		// included, exits 64 (the BSD sysexits.h EX_USAGE code) rather
		// than cli's default 1; unknown commands exit 64 via
		// CommandNotFound below.
		ExitErrHandler: func(ctx *cli.Context, err error) {
			if err == nil {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			cli.OsExiter(64)
		},
		CommandNotFound: func(ctx *cli.Context, command string) {
			fmt.Fprintf(os.Stderr, "coldbrew: unknown command %q\n", command)
			cli.OsExiter(64)
		},
		Commands: []*cli.Command{
			{
				Name:   "unit",
				Usage:  "run the small sample programs through the interpreter",
				Action: runCommand(unitSamples, false),
			},
			{
				Name:   "integration",
				Usage:  "run the larger sample programs through the interpreter",
				Action: runCommand(integrationSamples, false),
			},
			{
				Name:   "jit",
				Usage:  "run the hot-loop sample with the JIT path enabled",
				Action: runCommand(jitSamples, true),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
