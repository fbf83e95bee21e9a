package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/reader"
	"github.com/justapithecus/dredge/cli/render"
	"github.com/justapithecus/dredge/cli/tui"
)

// StatusCommand returns the status command. Status reads the persisted
// checkpoint only and never attaches to a running engine.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show crawl progress from the stored checkpoint",
		Flags:  ReadOnlyFlags(),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	r := reader.NewReader(store)

	if c.Bool("tui") {
		return tui.RunStatusTUI(r)
	}

	status, err := r.Status(c.Context)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return cli.Exit("no checkpoint found; start a crawl with: dredge run", 1)
		}
		return err
	}

	renderer, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return renderer.Render(status)
}
