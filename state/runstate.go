package state

import (
	"sort"
	"sync"
	"time"

	"github.com/justapithecus/dredge/types"
)

// RunState is the canonical owned state of a crawl against one source
// context. The ledger and queue are sub-structures mutated only through
// the locked operations here while a run or reconcile operation holds
// logical control.
type RunState struct {
	mu sync.Mutex

	Source types.SourceContext

	ledger *Ledger
	queue  *Queue

	phase              types.RunPhase
	discoveredComplete bool
	authExpired        bool

	// Counters.
	scrollRounds  int64
	visibleScans  int64
	detailFetched int64
	detailErrors  int64
}

// NewRunState creates a fresh run state for the given source context.
func NewRunState(source types.SourceContext) *RunState {
	return &RunState{
		Source: source,
		ledger: NewLedger(),
		queue:  NewQueue(),
		phase:  types.PhaseIdle,
	}
}

// Do runs fn while holding the state lock. This is the single mutation
// gate: engine loops and the reconciler batch their ledger/queue updates
// inside one critical section, so checkpoints never observe a
// mid-transition partition.
func (s *RunState) Do(fn func(l *Ledger, q *Queue)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ledger, s.queue)
}

// ObserveVisible upserts extracted partials under sourceKey, enqueueing
// detail work for newly seen items. Returns the number of new items.
// Partials failing validation are dropped.
func (s *RunState) ObserveVisible(partials []types.PartialItem, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.Source.Key()
	added := 0
	s.visibleScans++
	s.ledger.TouchSource(s.Source, now)

	for _, p := range partials {
		if err := p.Validate(); err != nil {
			continue
		}
		if s.ledger.Upsert(p, key, now) {
			added++
		}
		if !s.ledger.Get(p.ID).DetailFetched {
			s.queue.EnqueueIfNew(p.ID)
		} else {
			// Known-complete items still need queue membership so the
			// partition invariant covers every ledger id.
			if !s.queue.Contains(p.ID) {
				s.queue.Complete(p.ID)
			}
		}
	}
	return added
}

// NextPending pops the head of pending into inProgress.
func (s *RunState) NextPending() (types.ItemID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.PopPending()
}

// CompleteDetail records a successful detail fetch and moves the item to
// done.
func (s *RunState) CompleteDetail(id types.ItemID, fields types.ParsedFields, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.RecordDetail(id, fields, status)
	s.queue.Complete(id)
	s.detailFetched++
}

// FailDetail records a per-item failure and moves the item to errored.
func (s *RunState) FailDetail(id types.ItemID, class types.FailureClass, description string, status *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.RecordDetailFailure(id, class, description, status)
	s.queue.Fail(id)
	s.detailErrors++
}

// HaltAuthExpired flips the auth-expired flag and requeues the triggering
// item at the front of pending so it is retried first on resume.
func (s *RunState) HaltAuthExpired(id types.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authExpired = true
	s.queue.RequeueFront(id)
}

// MarkPreviewDownloaded flags the item's preview as downloaded.
func (s *RunState) MarkPreviewDownloaded(id types.ItemID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.MarkPreviewDownloaded(id)
}

// SetPhase transitions the lifecycle phase.
func (s *RunState) SetPhase(p types.RunPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// Phase returns the current lifecycle phase.
func (s *RunState) Phase() types.RunPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetDiscoveredComplete marks discovery as exhausted.
func (s *RunState) SetDiscoveredComplete(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discoveredComplete = v
}

// DiscoveredComplete reports whether discovery exhausted the catalog.
func (s *RunState) DiscoveredComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discoveredComplete
}

// ClearAuthExpired resets the auth flag. Called by start after the
// operator re-authenticates.
func (s *RunState) ClearAuthExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authExpired = false
}

// AuthExpired reports whether the run halted on authentication expiry.
func (s *RunState) AuthExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authExpired
}

// IncScrollRound counts one discovery advance-and-settle cycle.
func (s *RunState) IncScrollRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollRounds++
}

// QueueDrained reports whether no detail work is pending or in flight.
func (s *RunState) QueueDrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.IsDrained()
}

// Reset discards all collected state, returning the run state to idle.
func (s *RunState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = NewLedger()
	s.queue = NewQueue()
	s.phase = types.PhaseIdle
	s.discoveredComplete = false
	s.authExpired = false
	s.scrollRounds = 0
	s.visibleScans = 0
	s.detailFetched = 0
	s.detailErrors = 0
}

// Counters is the counter block of a status snapshot.
type Counters struct {
	ScrollRounds  int64 `json:"scrollRounds" msgpack:"scrollRounds"`
	VisibleScans  int64 `json:"visibleScans" msgpack:"visibleScans"`
	DetailFetched int64 `json:"detailFetched" msgpack:"detailFetched"`
	DetailErrors  int64 `json:"detailErrors" msgpack:"detailErrors"`
}

// SetCounters installs counter values decoded from a checkpoint.
func (s *RunState) SetCounters(c Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollRounds = c.ScrollRounds
	s.visibleScans = c.VisibleScans
	s.detailFetched = c.DetailFetched
	s.detailErrors = c.DetailErrors
}

// CountersSnapshot returns the current counter values.
func (s *RunState) CountersSnapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counters{
		ScrollRounds:  s.scrollRounds,
		VisibleScans:  s.visibleScans,
		DetailFetched: s.detailFetched,
		DetailErrors:  s.detailErrors,
	}
}

// Status is a non-mutating point-in-time view for the control surface.
type Status struct {
	Phase              types.RunPhase      `json:"phase"`
	Source             types.SourceContext `json:"source"`
	Discovered         int                 `json:"discovered"`
	Pending            int                 `json:"pending"`
	InProgress         int                 `json:"inProgress"`
	Done               int                 `json:"done"`
	Errored            int                 `json:"errored"`
	DiscoveredComplete bool                `json:"discoveredComplete"`
	AuthExpired        bool                `json:"authExpired"`
	Counters           Counters            `json:"counters"`
}

// StatusSnapshot returns the current status view.
func (s *RunState) StatusSnapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, inProgress, done, errored := s.queue.Counts()
	return Status{
		Phase:              s.phase,
		Source:             s.Source,
		Discovered:         s.ledger.Len(),
		Pending:            pending,
		InProgress:         inProgress,
		Done:               done,
		Errored:            errored,
		DiscoveredComplete: s.discoveredComplete,
		AuthExpired:        s.authExpired,
		Counters: Counters{
			ScrollRounds:  s.scrollRounds,
			VisibleScans:  s.visibleScans,
			DetailFetched: s.detailFetched,
			DetailErrors:  s.detailErrors,
		},
	}
}

// Export is the complete serializable view of a run state. In-progress
// work is folded into the front of pending at capture time, so a
// restored run retries interrupted items first and never resurrects an
// in-flight marker.
type Export struct {
	Phase              types.RunPhase                       `json:"phase" msgpack:"phase"`
	Source             types.SourceContext                  `json:"source" msgpack:"source"`
	Items              []*types.Item                        `json:"items" msgpack:"items"`
	KnownSources       map[types.SourceKey]types.KnownSource `json:"knownSources" msgpack:"knownSources"`
	Pending            []types.ItemID                       `json:"pending" msgpack:"pending"`
	Done               []types.ItemID                       `json:"done" msgpack:"done"`
	Errored            []types.ItemID                       `json:"errored" msgpack:"errored"`
	DiscoveredComplete bool                                 `json:"discoveredComplete" msgpack:"discoveredComplete"`
	AuthExpired        bool                                 `json:"authExpired" msgpack:"authExpired"`
	Counters           Counters                             `json:"counters" msgpack:"counters"`
}

// Export captures the full state under one lock acquisition. Items are
// deep copies; the caller may serialize without further coordination.
func (s *RunState) Export() Export {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := append([]types.ItemID(nil), s.queue.InProgress()...)
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	pending = append(pending, s.queue.Pending()...)

	known := make(map[types.SourceKey]types.KnownSource, len(s.ledger.KnownSources()))
	for k, v := range s.ledger.KnownSources() {
		known[k] = v
	}

	return Export{
		Phase:              s.phase,
		Source:             s.Source,
		Items:              s.ledger.Snapshot(),
		KnownSources:       known,
		Pending:            pending,
		Done:               s.queue.Done(),
		Errored:            s.queue.Errored(),
		DiscoveredComplete: s.discoveredComplete,
		AuthExpired:        s.authExpired,
		Counters: Counters{
			ScrollRounds:  s.scrollRounds,
			VisibleScans:  s.visibleScans,
			DetailFetched: s.detailFetched,
			DetailErrors:  s.detailErrors,
		},
	}
}

// Restore replaces the ledger, queue, and phase with the exported view,
// so a status read after restore-and-save reflects the checkpointed
// lifecycle. The controller re-transitions the phase when it resumes.
func (s *RunState) Restore(e Export) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := NewLedger()
	for _, it := range e.Items {
		ledger.PutItem(it.Clone())
	}
	for k, v := range e.KnownSources {
		ledger.SetKnownSource(k, v)
	}

	queue := NewQueue()
	for _, id := range e.Pending {
		queue.EnqueueIfNew(id)
	}
	for _, id := range e.Done {
		queue.Complete(id)
	}
	for _, id := range e.Errored {
		queue.Fail(id)
	}

	s.Source = e.Source
	s.ledger = ledger
	s.queue = queue
	s.phase = e.Phase
	if s.phase == "" {
		s.phase = types.PhaseIdle
	}
	s.discoveredComplete = e.DiscoveredComplete
	s.authExpired = e.AuthExpired
	s.scrollRounds = e.Counters.ScrollRounds
	s.visibleScans = e.Counters.VisibleScans
	s.detailFetched = e.Counters.DetailFetched
	s.detailErrors = e.Counters.DetailErrors
}

// CompletedSuccessfully reports natural completion with an empty errored
// set. Only meaningful once the phase is completed.
func (s *RunState) CompletedSuccessfully() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, _, errored := s.queue.Counts()
	return s.phase == types.PhaseCompleted && errored == 0
}

func sortItems(items []*types.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].FirstSeenAt.Equal(items[j].FirstSeenAt) {
			return items[i].FirstSeenAt.Before(items[j].FirstSeenAt)
		}
		return items[i].ID < items[j].ID
	})
}
