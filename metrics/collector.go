// Package metrics provides per-run metrics collection for the crawl
// engine. The Collector accumulates counters during a single run. It is
// a leaf package with no internal dependencies; ledger-derived counts
// live in the run state, not here, to avoid double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the collected counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Discovery
	ScrollRounds int64
	IdleRounds   int64

	// Detail fetching
	FetchSuccess int64
	FetchFailure int64
	ParseFailure int64
	AuthExpiries int64

	// Preview downloads
	DownloadSuccess int64
	DownloadFailure int64

	// Checkpointing
	CheckpointWrites   int64
	CheckpointFailures int64

	// Dimensions (informational, set at construction)
	SourceKey      string
	StorageBackend string
	RunID          string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	scrollRounds int64
	idleRounds   int64

	fetchSuccess int64
	fetchFailure int64
	parseFailure int64
	authExpiries int64

	downloadSuccess int64
	downloadFailure int64

	checkpointWrites   int64
	checkpointFailures int64

	sourceKey      string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sourceKey, storageBackend, runID string) *Collector {
	return &Collector{
		sourceKey:      sourceKey,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

// --- Discovery ---

// IncScrollRound records one advance-and-settle discovery cycle.
func (c *Collector) IncScrollRound() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scrollRounds++
	c.mu.Unlock()
}

// IncIdleRound records a discovery round that yielded nothing new.
func (c *Collector) IncIdleRound() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.idleRounds++
	c.mu.Unlock()
}

// --- Detail fetching ---

// IncFetchSuccess records a successful detail fetch-and-parse.
func (c *Collector) IncFetchSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchSuccess++
	c.mu.Unlock()
}

// IncFetchFailure records a failed detail fetch (network or HTTP status).
func (c *Collector) IncFetchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fetchFailure++
	c.mu.Unlock()
}

// IncParseFailure records a detail body that yielded no fields.
func (c *Collector) IncParseFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.parseFailure++
	c.mu.Unlock()
}

// IncAuthExpiry records a detected session expiry.
func (c *Collector) IncAuthExpiry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.authExpiries++
	c.mu.Unlock()
}

// --- Preview downloads ---

// IncDownloadSuccess records a fetched preview resource.
func (c *Collector) IncDownloadSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.downloadSuccess++
	c.mu.Unlock()
}

// IncDownloadFailure records a failed preview download.
func (c *Collector) IncDownloadFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.downloadFailure++
	c.mu.Unlock()
}

// --- Checkpointing ---
// Checkpoint counters are per-write, not per-item: one Save call
// covering N items counts as 1.

// IncCheckpointWrite records a persisted checkpoint.
func (c *Collector) IncCheckpointWrite() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.checkpointWrites++
	c.mu.Unlock()
}

// IncCheckpointFailure records a checkpoint write that failed.
func (c *Collector) IncCheckpointFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.checkpointFailures++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ScrollRounds: c.scrollRounds,
		IdleRounds:   c.idleRounds,

		FetchSuccess: c.fetchSuccess,
		FetchFailure: c.fetchFailure,
		ParseFailure: c.parseFailure,
		AuthExpiries: c.authExpiries,

		DownloadSuccess: c.downloadSuccess,
		DownloadFailure: c.downloadFailure,

		CheckpointWrites:   c.checkpointWrites,
		CheckpointFailures: c.checkpointFailures,

		SourceKey:      c.sourceKey,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
	}
}
