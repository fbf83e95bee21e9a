package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/log"
	"github.com/justapithecus/dredge/metrics"
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// DefaultWorkers is the worker pool size.
const DefaultWorkers = 3

// DefaultWorkerPause is the inter-fetch pause of a worker, keeping the
// pool from hammering the origin.
const DefaultWorkerPause = 150 * time.Millisecond

// DefaultFailureBackoff is the extra pause after an ordinary per-item
// failure.
const DefaultFailureBackoff = 300 * time.Millisecond

// DefaultIdleWait is how long a worker idles before re-checking an
// empty pending queue.
const DefaultIdleWait = 200 * time.Millisecond

// WorkerConfig configures the detail-fetch worker pool.
type WorkerConfig struct {
	// Workers overrides DefaultWorkers when > 0.
	Workers int
	// Pause overrides DefaultWorkerPause when > 0.
	Pause time.Duration
	// FailureBackoff overrides DefaultFailureBackoff when > 0.
	FailureBackoff time.Duration
	// IdleWait overrides DefaultIdleWait when > 0.
	IdleWait time.Duration
	// DownloadPreviews enables the preview-download side effect.
	DownloadPreviews bool
	// PreviewDir is where downloaded previews land.
	PreviewDir string
}

func (c WorkerConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return DefaultWorkers
}

func (c WorkerConfig) pause() time.Duration {
	if c.Pause > 0 {
		return c.Pause
	}
	return DefaultWorkerPause
}

func (c WorkerConfig) failureBackoff() time.Duration {
	if c.FailureBackoff > 0 {
		return c.FailureBackoff
	}
	return DefaultFailureBackoff
}

func (c WorkerConfig) idleWait() time.Duration {
	if c.IdleWait > 0 {
		return c.IdleWait
	}
	return DefaultIdleWait
}

// WorkerPool drains the pending queue with a small fixed number of
// concurrent workers. Each pending item is processed by exactly one
// worker, enforced by the atomic pop into inProgress. An
// authentication-expired signal halts the whole pool; every other
// failure is local to its item.
type WorkerPool struct {
	state      *state.RunState
	fetcher    catalog.Fetcher
	parser     catalog.Parser
	downloader catalog.Downloader
	config     WorkerConfig
	logger     *log.Logger
	collector  *metrics.Collector
}

// NewWorkerPool creates a worker pool. downloader may be nil when the
// preview side effect is disabled.
func NewWorkerPool(st *state.RunState, fetcher catalog.Fetcher, parser catalog.Parser, downloader catalog.Downloader, cfg WorkerConfig, logger *log.Logger, collector *metrics.Collector) *WorkerPool {
	return &WorkerPool{
		state:      st,
		fetcher:    fetcher,
		parser:     parser,
		downloader: downloader,
		config:     cfg,
		logger:     logger,
		collector:  collector,
	}
}

// Run launches the workers and blocks until all have exited. A worker
// exits when the context is canceled, the run halts on auth expiry, or
// discovery is complete and the queue has drained.
func (p *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.config.workers(); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		if p.state.AuthExpired() {
			return
		}

		itemID, ok := p.state.NextPending()
		if !ok {
			if p.state.DiscoveredComplete() && p.state.QueueDrained() {
				p.logger.Debug("worker exiting, queue drained", map[string]any{"worker": id})
				return
			}
			if !sleepCtx(ctx, p.config.idleWait()) {
				return
			}
			continue
		}

		halted := p.processItem(ctx, itemID)
		if halted {
			return
		}
	}
}

// processItem fetches, parses, and records one item's detail. Reports
// true when the run must halt (auth expiry).
func (p *WorkerPool) processItem(ctx context.Context, id types.ItemID) bool {
	var itemURL string
	var previewURL *string
	var previewDone bool
	p.state.Do(func(l *state.Ledger, q *state.Queue) {
		if it := l.Get(id); it != nil {
			itemURL = it.ItemURL
			previewURL = it.PreviewURL
			previewDone = it.DownloadedPreview
		}
	})
	if itemURL == "" {
		// A queued id with no ledger entry cannot be fetched. Import and
		// discovery both upsert before enqueueing, so this is a bug guard.
		p.state.FailDetail(id, types.FailureParse, "no ledger entry for queued item", nil)
		return false
	}

	res, err := p.fetcher.Fetch(ctx, itemURL)
	if err != nil {
		if ctx.Err() != nil {
			p.state.Do(func(l *state.Ledger, q *state.Queue) { q.RequeueFront(id) })
			return true
		}
		return p.recordFailure(ctx, id, err, nil)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		status := res.StatusCode
		p.state.FailDetail(id, types.FailureHTTPStatus, "unexpected status", &status)
		p.collector.IncFetchFailure()
		sleepCtx(ctx, p.config.failureBackoff())
		return false
	}

	fields, err := p.parser.Parse(res.Body)
	if err != nil {
		status := res.StatusCode
		return p.recordFailure(ctx, id, err, &status)
	}

	p.state.CompleteDetail(id, fields, res.StatusCode)
	p.collector.IncFetchSuccess()

	if p.config.DownloadPreviews && p.downloader != nil && previewURL != nil && !previewDone {
		p.downloadPreview(ctx, id, *previewURL)
	}

	sleepCtx(ctx, p.config.pause())
	return false
}

// recordFailure classifies err and updates state. Reports true when the
// class halts the run.
func (p *WorkerPool) recordFailure(ctx context.Context, id types.ItemID, err error, status *int) bool {
	if errors.Is(err, catalog.ErrAuthExpired) {
		p.logger.Warn("authentication expired, halting run", map[string]any{
			"item_id": string(id),
		})
		p.state.HaltAuthExpired(id)
		p.collector.IncAuthExpiry()
		return true
	}

	class := catalog.Classify(err)
	p.state.FailDetail(id, class, err.Error(), status)
	if class == types.FailureParse {
		p.collector.IncParseFailure()
	} else {
		p.collector.IncFetchFailure()
	}
	p.logger.Debug("detail fetch failed", map[string]any{
		"item_id": string(id),
		"class":   string(class),
		"error":   err.Error(),
	})

	sleepCtx(ctx, p.config.failureBackoff())
	return false
}

// downloadPreview fetches the item's preview resource. Failure is
// logged and never affects item state.
func (p *WorkerPool) downloadPreview(ctx context.Context, id types.ItemID, previewURL string) {
	dest := filepath.Join(p.config.PreviewDir, string(id)+filepath.Ext(previewURL))
	if err := p.downloader.Download(ctx, previewURL, dest); err != nil {
		p.collector.IncDownloadFailure()
		p.logger.Warn("preview download failed", map[string]any{
			"item_id": string(id),
			"error":   err.Error(),
		})
		return
	}
	p.state.MarkPreviewDownloaded(id)
	p.collector.IncDownloadSuccess()
}
