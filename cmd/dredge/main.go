// Package main provides the dredge CLI entrypoint.
//
// Usage:
//
//	dredge <command> [options]
//
// Exit codes for `run`:
//   - 0: completed successfully (or paused cooperatively)
//   - 1: completed with per-item errors, or discovery failed
//   - 2: authentication expired
//   - 3: checkpoint/storage failure at startup
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/cli/cmd"
	"github.com/justapithecus/dredge/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "dredge",
		Usage:          "Resumable DAM catalog crawler",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.StatusCommand(),
			cmd.ScanCommand(),
			cmd.ImportCommand(),
			cmd.RecheckCommand(),
			cmd.ExportCommand(),
			cmd.ResetCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() so the run
// command's outcome codes reach the caller.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
