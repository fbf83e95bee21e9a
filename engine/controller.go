package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/dredge/adapter"
	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/log"
	"github.com/justapithecus/dredge/metrics"
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// DefaultCheckpointInterval is how often the controller persists state
// while the loops run.
const DefaultCheckpointInterval = 5 * time.Second

// ControllerConfig configures a crawl run.
type ControllerConfig struct {
	// Source is the catalog context to crawl (required).
	Source types.SourceContext
	// RunID identifies this run. Generated when empty.
	RunID string
	// View drives discovery (required).
	View catalog.View
	// Fetcher performs detail fetches (required).
	Fetcher catalog.Fetcher
	// Parser extracts detail fields (required).
	Parser catalog.Parser
	// Downloader handles the optional preview side effect. May be nil.
	Downloader catalog.Downloader
	// Store persists checkpoints (required).
	Store checkpoint.Store
	// Discovery configures the discovery loop.
	Discovery DiscoveryConfig
	// Workers configures the worker pool.
	Workers WorkerConfig
	// CheckpointInterval overrides DefaultCheckpointInterval when > 0.
	CheckpointInterval time.Duration
	// Notifier optionally publishes a completion event. May be nil.
	Notifier adapter.Adapter
	// Collector records run metrics. Nil disables metrics.
	Collector *metrics.Collector
}

// RunResult is what a finished (or halted) run reports.
type RunResult struct {
	RunID    string
	Outcome  *types.RunOutcome
	Duration time.Duration
	Status   state.Status
}

// Controller owns the run lifecycle: it loads or migrates checkpointed
// state, launches the discovery loop and worker pool concurrently,
// checkpoints periodically, and determines the final outcome. Pausing
// is cooperative via context cancellation; loops exit at their next
// safe point and a final checkpoint is always written.
type Controller struct {
	config ControllerConfig
	state  *state.RunState
	logger *log.Logger

	mu      sync.Mutex
	running bool
}

// NewController creates a controller for the given source context.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.Source.Validate(); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	if cfg.View == nil || cfg.Fetcher == nil || cfg.Parser == nil {
		return nil, errors.New("controller: view, fetcher, and parser are required")
	}
	if cfg.Store == nil {
		return nil, errors.New("controller: checkpoint store is required")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}

	return &Controller{
		config: cfg,
		state:  state.NewRunState(cfg.Source),
		logger: log.NewLogger(cfg.RunID, cfg.Source),
	}, nil
}

// State returns the controller's owned run state. Reconcile operations
// borrow it between runs.
func (c *Controller) State() *state.RunState { return c.state }

// Status returns a non-mutating snapshot for the control surface.
func (c *Controller) Status() state.Status { return c.state.StatusSnapshot() }

// Execute runs the crawl to completion, pause, or halt. When resume is
// true, checkpointed state for the context is loaded first; a missing
// checkpoint is not an error. Returns an error only for startup storage
// failures; everything after launch degrades to an observable outcome.
func (c *Controller) Execute(ctx context.Context, resume bool) (*RunResult, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, errors.New("controller: run already in progress")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	start := time.Now()
	c.state.SetPhase(types.PhaseStarting)

	if resume {
		if err := c.loadCheckpoint(ctx); err != nil {
			c.state.SetPhase(types.PhaseIdle)
			return nil, err
		}
	}

	// Re-authentication happened outside; the halted item sits at the
	// front of pending and is retried first.
	c.state.ClearAuthExpired()
	c.state.SetPhase(types.PhaseRunning)

	c.logger.Info("run starting", map[string]any{
		"resume":     resume,
		"discovered": c.state.StatusSnapshot().Discovered,
	})

	checkpointDone := make(chan struct{})
	go c.checkpointLoop(ctx, checkpointDone)

	discovery := NewDiscoveryLoop(c.state, c.config.View, c.config.Discovery, c.logger, c.config.Collector)
	pool := NewWorkerPool(c.state, c.config.Fetcher, c.config.Parser, c.config.Downloader, c.config.Workers, c.logger, c.config.Collector)

	// The workers' natural exit requires DiscoveredComplete, which an
	// errored discovery never sets. Canceling the shared loop context
	// keeps a discovery failure from stranding the pool.
	loopCtx, stopLoops := context.WithCancel(ctx)
	defer stopLoops()

	var discoveryErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := discovery.Run(loopCtx); err != nil {
			discoveryErr = err
			c.logger.Error("discovery loop failed, stopping workers", map[string]any{"error": err.Error()})
			stopLoops()
		}
	}()
	go func() {
		defer wg.Done()
		pool.Run(loopCtx)
	}()
	wg.Wait()
	close(checkpointDone)

	outcome := c.finish(ctx, start, discoveryErr)

	return &RunResult{
		RunID:    c.config.RunID,
		Outcome:  outcome,
		Duration: time.Since(start),
		Status:   c.state.StatusSnapshot(),
	}, nil
}

// loadCheckpoint restores state from the store. ErrNotFound means a
// fresh run; any other failure is a startup storage error.
func (c *Controller) loadCheckpoint(ctx context.Context) error {
	doc, err := checkpoint.Load(ctx, c.config.Store)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			c.logger.Info("no checkpoint found, starting fresh", nil)
			return nil
		}
		return fmt.Errorf("controller: load checkpoint: %w", err)
	}

	c.state.Restore(doc.State)
	c.logger.Info("checkpoint restored", map[string]any{
		"saved_at":   doc.SavedAt.Format(time.RFC3339),
		"discovered": c.state.StatusSnapshot().Discovered,
	})
	return nil
}

// checkpointLoop persists state periodically until done closes. Write
// failures are logged and the run continues in memory; the next
// successful write persists everything.
func (c *Controller) checkpointLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.config.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeCheckpoint(ctx)
		}
	}
}

func (c *Controller) writeCheckpoint(ctx context.Context) {
	// Detached from run cancellation so the pause-path final write and
	// the periodic writes share one code path.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := checkpoint.Save(saveCtx, c.config.Store, c.config.RunID, c.state, time.Now()); err != nil {
		c.config.Collector.IncCheckpointFailure()
		c.logger.Warn("checkpoint write failed", map[string]any{"error": err.Error()})
		return
	}
	c.config.Collector.IncCheckpointWrite()
}

// finish determines the outcome, writes the final checkpoint, and
// publishes the completion event.
func (c *Controller) finish(ctx context.Context, start time.Time, discoveryErr error) *types.RunOutcome {
	var outcome *types.RunOutcome
	switch {
	case c.state.AuthExpired():
		c.state.SetPhase(types.PhasePaused)
		outcome = &types.RunOutcome{
			Status:  types.OutcomeAuthExpired,
			Message: "authentication expired; re-authenticate and start again to resume",
		}
	case ctx.Err() != nil:
		c.state.SetPhase(types.PhasePaused)
		outcome = &types.RunOutcome{Status: types.OutcomePaused, Message: "run paused by operator"}
	case discoveryErr != nil:
		c.state.SetPhase(types.PhasePaused)
		outcome = &types.RunOutcome{
			Status:  types.OutcomeDiscoveryFailed,
			Message: fmt.Sprintf("discovery failed: %v; progress is checkpointed, start again to retry", discoveryErr),
		}
	default:
		c.state.SetPhase(types.PhaseCompleted)
		if c.state.CompletedSuccessfully() {
			outcome = &types.RunOutcome{Status: types.OutcomeCompleted, Message: "catalog exhausted, queue drained"}
		} else {
			outcome = &types.RunOutcome{
				Status:  types.OutcomeCompletedWithErrors,
				Message: "completed with per-item errors; run recheck to retry",
			}
		}
	}

	c.writeCheckpoint(ctx)

	status := c.state.StatusSnapshot()
	c.logger.Info("run finished", map[string]any{
		"outcome":    string(outcome.Status),
		"discovered": status.Discovered,
		"done":       status.Done,
		"errored":    status.Errored,
		"duration":   time.Since(start).String(),
	})

	c.notify(ctx, outcome, status, time.Since(start))
	return outcome
}

// notify publishes the completion event, best effort.
func (c *Controller) notify(ctx context.Context, outcome *types.RunOutcome, status state.Status, dur time.Duration) {
	if c.config.Notifier == nil {
		return
	}

	event := &adapter.CrawlCompletedEvent{
		EventType:     "crawl_completed",
		RunID:         c.config.RunID,
		SourceType:    c.config.Source.Type,
		SourceID:      c.config.Source.ID,
		Outcome:       string(outcome.Status),
		Discovered:    status.Discovered,
		DetailFetched: status.Counters.DetailFetched,
		DetailErrors:  status.Counters.DetailErrors,
		Pending:       status.Pending,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		DurationMs:    dur.Milliseconds(),
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := c.config.Notifier.Publish(publishCtx, event); err != nil {
		c.logger.Warn("completion notification failed", map[string]any{"error": err.Error()})
	}
}

// Reset discards all collected state for the context and removes the
// checkpoint entry.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("controller: cannot reset while a run is in progress")
	}

	c.state.Reset()
	if err := c.config.Store.Delete(ctx); err != nil {
		return fmt.Errorf("controller: clear checkpoint: %w", err)
	}
	c.logger.Info("state reset", nil)
	return nil
}
