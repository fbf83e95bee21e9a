package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/render"
	"github.com/justapithecus/dredge/reconcile"
)

// RecheckCommand returns the recheck command: recompute the queue
// partitions from ledger truth, optionally requeueing incomplete items
// and clearing recorded per-item errors.
func RecheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "recheck",
		Usage: "Rebuild the work queue from the ledger",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			TUIFlag,
			&cli.BoolFlag{
				Name:  "requeue",
				Usage: "Requeue items whose detail was never fetched",
			},
			&cli.BoolFlag{
				Name:  "clear-errors",
				Usage: "Clear recorded per-item detail errors",
			},
		},
		Action: recheckAction,
	}
}

func recheckAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for recheck", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	st, runID, err := loadState(c.Context, store)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return cli.Exit("no checkpoint found; nothing to recheck", 1)
		}
		return err
	}

	result := reconcile.Rebuild(st, reconcile.RebuildOptions{
		RequeueIncomplete: c.Bool("requeue"),
		ClearErrors:       c.Bool("clear-errors"),
	})

	if err := saveState(c.Context, store, runID, st); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	renderer, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return renderer.Render(result)
}
