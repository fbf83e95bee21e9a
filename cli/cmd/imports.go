package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/render"
	"github.com/justapithecus/dredge/reconcile"
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// ImportCommand returns the import command. Snapshots are merged
// fill-if-absent into the ledger; items with unfetched detail are
// queued. Importing the same snapshot twice is a no-op.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge a snapshot file into the ledger",
		ArgsUsage: "<snapshot.json>",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			TUIFlag,
		},
		Action: importAction,
	}
}

func importAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for import", 1)
	}
	if c.NArg() != 1 {
		return cli.Exit("usage: dredge import <snapshot.json>", 1)
	}

	snap, err := readSnapshot(c.Args().First())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	now := time.Now()

	st, runID, err := loadState(c.Context, store)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			return err
		}
		src := snap.Source
		if src.Validate() != nil {
			return errors.New("snapshot carries no source context and no checkpoint exists to merge into")
		}
		st = state.NewRunState(src)
		runID = uuid.NewString()
	}

	result := reconcile.Import(st, snap, now)

	if err := saveState(c.Context, store, runID, st); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	renderer, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return renderer.Render(result)
}

func readSnapshot(path string) (*types.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot file not found: %s", path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON in %s: %w", path, err)
	}
	return &snap, nil
}
