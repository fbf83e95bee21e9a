package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/render"
	"github.com/justapithecus/dredge/engine"
	"github.com/justapithecus/dredge/state"
)

// ScanResponse is the response for the scan command.
type ScanResponse struct {
	Added      int `json:"added"`
	Discovered int `json:"discovered"`
	Pending    int `json:"pending"`
}

// ScanCommand returns the scan command: a single extraction pass over a
// saved page file, upserting into the ledger without starting the crawl
// loops.
func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Extract visible items from a saved page file into the ledger",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			TUIFlag,
			&cli.StringFlag{
				Name:     "page",
				Usage:    "Path to the saved catalog page file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source context as type:id (e.g. spaces:42)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Base URL for resolving relative references",
			},
		},
		Action: scanAction,
	}
}

func scanAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for scan", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	src, err := resolveSource(c, cfg)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	st, runID, err := loadState(c.Context, store)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			return err
		}
		if err := src.Validate(); err != nil {
			return fmt.Errorf("%w (no checkpoint to scan into; set source in dredge.yaml or pass --source)", err)
		}
		st = state.NewRunState(src)
		runID = uuid.NewString()
	}

	view, err := catalog.NewFileView(c.String("page"), src.URL)
	if err != nil {
		return err
	}

	added, err := engine.ScanVisible(c.Context, st, view)
	if err != nil {
		return err
	}

	if err := saveState(c.Context, store, runID, st); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	status := st.StatusSnapshot()
	renderer, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return renderer.Render(ScanResponse{
		Added:      added,
		Discovered: status.Discovered,
		Pending:    status.Pending,
	})
}
