package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ResetCommand returns the reset command. Reset discards all collected
// state for the context by removing the checkpoint; it refuses to run
// without explicit confirmation.
func ResetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Discard all collected state and remove the checkpoint",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the reset",
			},
		},
		Action: resetAction,
	}
}

func resetAction(c *cli.Context) error {
	if !c.Bool("yes") {
		return cli.Exit("reset discards the ledger, queue, and checkpoint; pass --yes to confirm", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	if err := store.Delete(c.Context); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}

	fmt.Println("state reset; checkpoint removed")
	return nil
}
