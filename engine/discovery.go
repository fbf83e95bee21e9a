// Package engine contains the crawl loops and the run controller: the
// discovery loop that finds items, the worker pool that fetches per-item
// detail, and the controller that owns the run lifecycle and periodic
// checkpointing.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/log"
	"github.com/justapithecus/dredge/metrics"
	"github.com/justapithecus/dredge/state"
)

// DefaultIdleThreshold is the number of consecutive non-growth rounds
// after which discovery declares the catalog exhausted. High enough to
// absorb render and network jitter on virtualized views.
const DefaultIdleThreshold = 10

// DefaultSettleDelay is how long discovery waits after advancing the
// view before extracting again.
const DefaultSettleDelay = 500 * time.Millisecond

// DiscoveryConfig configures the discovery loop.
type DiscoveryConfig struct {
	// IdleThreshold overrides DefaultIdleThreshold when > 0.
	IdleThreshold int
	// SettleDelay overrides DefaultSettleDelay when > 0.
	SettleDelay time.Duration
}

func (c DiscoveryConfig) idleThreshold() int {
	if c.IdleThreshold > 0 {
		return c.IdleThreshold
	}
	return DefaultIdleThreshold
}

func (c DiscoveryConfig) settleDelay() time.Duration {
	if c.SettleDelay > 0 {
		return c.SettleDelay
	}
	return DefaultSettleDelay
}

// DiscoveryLoop drives the catalog view forward and upserts everything
// it sees. Completion is inferred from sustained non-growth: one idle
// round is a full advance-and-settle cycle where neither the item count
// nor the scrollable extent changed and no extraction added items.
type DiscoveryLoop struct {
	state     *state.RunState
	view      catalog.View
	config    DiscoveryConfig
	logger    *log.Logger
	collector *metrics.Collector
}

// NewDiscoveryLoop creates a discovery loop over the given view.
func NewDiscoveryLoop(st *state.RunState, view catalog.View, cfg DiscoveryConfig, logger *log.Logger, collector *metrics.Collector) *DiscoveryLoop {
	return &DiscoveryLoop{
		state:     st,
		view:      view,
		config:    cfg,
		logger:    logger,
		collector: collector,
	}
}

// Run loops until the catalog is exhausted, the context is canceled, or
// the run halts on auth expiry. DiscoveredComplete is set only on
// natural exhaustion, never on cancellation or halt.
func (d *DiscoveryLoop) Run(ctx context.Context) error {
	idle := 0
	threshold := d.config.idleThreshold()
	prevCount := -1
	var prevExtent int64 = -1

	for {
		if ctx.Err() != nil {
			return nil
		}
		if d.state.AuthExpired() {
			d.logger.Info("discovery stopping on auth expiry", nil)
			return nil
		}

		added, err := d.observe(ctx)
		if err != nil {
			return err
		}

		if err := d.view.Advance(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discovery: advance view: %w", err)
		}
		if !sleepCtx(ctx, d.config.settleDelay()) {
			return nil
		}

		addedAfter, err := d.observe(ctx)
		if err != nil {
			return err
		}

		count, extent, err := d.view.Extent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discovery: measure extent: %w", err)
		}

		d.state.IncScrollRound()
		d.collector.IncScrollRound()

		grew := added > 0 || addedAfter > 0 || count != prevCount || extent != prevExtent
		prevCount, prevExtent = count, extent

		if grew {
			idle = 0
			continue
		}

		idle++
		d.collector.IncIdleRound()
		d.logger.Debug("idle discovery round", map[string]any{
			"idle_rounds": idle,
			"threshold":   threshold,
		})

		if idle >= threshold {
			d.state.SetDiscoveredComplete(true)
			d.logger.Info("discovery complete", map[string]any{
				"discovered": d.state.StatusSnapshot().Discovered,
			})
			return nil
		}
	}
}

// observe extracts the currently visible items and upserts them.
func (d *DiscoveryLoop) observe(ctx context.Context) (int, error) {
	partials, err := d.view.Extract(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil
		}
		return 0, fmt.Errorf("discovery: extract: %w", err)
	}
	return d.state.ObserveVisible(partials, time.Now()), nil
}

// sleepCtx sleeps for dur unless the context is canceled first.
// Reports false on cancellation.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
