package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/adapter"
	"github.com/justapithecus/dredge/adapter/redis"
	"github.com/justapithecus/dredge/adapter/webhook"
	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/config"
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// defaultCheckpointPath is where the fs backend stores state when the
// config file does not say otherwise.
const defaultCheckpointPath = "dredge-checkpoint.bin"

// loadConfig reads the config file named by --config. A missing file at
// the default path means "no config" and yields zero values; a missing
// file at an explicitly given path is an error.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if !c.IsSet("config") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return &config.Config{}, nil
		}
	}
	return config.Load(path)
}

// resolveSource builds the source context from config with CLI
// overrides. --source takes "type:id"; --url overrides the listing URL.
func resolveSource(c *cli.Context, cfg *config.Config) (types.SourceContext, error) {
	src := types.SourceContext{
		Type: cfg.Source.Type,
		ID:   cfg.Source.ID,
		URL:  cfg.Source.URL,
	}
	if s := c.String("source"); s != "" {
		parsed, err := types.ParseSourceKey(types.SourceKey(s))
		if err != nil {
			return types.SourceContext{}, fmt.Errorf("--source must be type:id (e.g. spaces:42): %w", err)
		}
		src.Type, src.ID = parsed.Type, parsed.ID
	}
	if u := c.String("url"); u != "" {
		src.URL = u
	}
	return src, nil
}

// buildStore creates the checkpoint store named by the config.
func buildStore(cfg *config.Config) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "", "fs":
		path := cfg.Checkpoint.Path
		if path == "" {
			path = defaultCheckpointPath
		}
		return checkpoint.NewFileStore(path), nil
	case "redis":
		if cfg.Checkpoint.URL == "" {
			return nil, errors.New("checkpoint.url is required for the redis backend")
		}
		return checkpoint.NewRedisStore(cfg.Checkpoint.URL, cfg.Checkpoint.Key)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q (must be fs or redis)", cfg.Checkpoint.Backend)
	}
}

// buildNotifier creates the completion-notification adapter, or nil
// when none is configured.
func buildNotifier(cfg *config.Config) (adapter.Adapter, error) {
	// nil retries means "not set": fall back to the adapter default.
	// An explicit 0 disables retries.
	retries := func(def int) int {
		if cfg.Adapter.Retries != nil {
			return *cfg.Adapter.Retries
		}
		return def
	}

	switch cfg.Adapter.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries(webhook.DefaultRetries),
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries(redis.DefaultRetries),
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", cfg.Adapter.Type)
	}
}

// loadState restores checkpointed run state. Returns the restored state
// and the checkpoint's run ID, or checkpoint.ErrNotFound when nothing
// is stored.
func loadState(ctx context.Context, store checkpoint.Store) (*state.RunState, string, error) {
	doc, err := checkpoint.Load(ctx, store)
	if err != nil {
		return nil, "", err
	}
	st := state.NewRunState(doc.State.Source)
	st.Restore(doc.State)
	return st, doc.RunID, nil
}

// saveState persists run state back to the store.
func saveState(ctx context.Context, store checkpoint.Store, runID string, st *state.RunState) error {
	return checkpoint.Save(ctx, store, runID, st, time.Now())
}

// resolveString returns the CLI flag value when set, the config value
// when non-empty, then the flag's own default.
func resolveString(c *cli.Context, flag, configVal string) string {
	if c.IsSet(flag) {
		return c.String(flag)
	}
	if configVal != "" {
		return configVal
	}
	return c.String(flag)
}

// resolveInt returns the CLI flag value when set, otherwise the config value.
func resolveInt(c *cli.Context, flag string, configVal int) int {
	if c.IsSet(flag) {
		return c.Int(flag)
	}
	return configVal
}

// resolveBool returns the CLI flag value when set, otherwise the config value.
func resolveBool(c *cli.Context, flag string, configVal bool) bool {
	if c.IsSet(flag) {
		return c.Bool(flag)
	}
	return configVal
}
