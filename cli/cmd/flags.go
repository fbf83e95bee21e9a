// Package cmd provides CLI commands for the dredge binary.
//
// Only `run` and `scan` execute work against the catalog; everything
// else operates on the checkpoint store. All commands load defaults
// from dredge.yaml, with CLI flags taking precedence.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag names the YAML config file. The default path is
	// optional; an explicitly given path must exist.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to dredge.yaml config file",
		Value:   "dredge.yaml",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables the Bubble Tea live view.
	// Only valid for status; other commands reject it with an explicit
	// message instead of a generic "flag not defined" error.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (status only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		FormatFlag,
		TUIFlag,
	}
}
