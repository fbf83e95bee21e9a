package reconcile

import (
	"github.com/justapithecus/dredge/state"
)

// RebuildOptions controls the recheck queue recomputation.
type RebuildOptions struct {
	// RequeueIncomplete puts items without completed detail back into
	// pending. When false they are left out of all sets until the next
	// discovery pass.
	RequeueIncomplete bool
	// ClearErrors drops the recorded detailError/detailFetchStatus of
	// incomplete items, giving the retry a clean slate.
	ClearErrors bool
}

// RebuildResult reports the recheck recomputation.
type RebuildResult struct {
	// Done is the number of items with completed detail.
	Done int `json:"done"`
	// Queued is the number of items newly placed in pending.
	Queued int `json:"queued"`
}

// Rebuild recomputes the four queue sets from the ledger's detail
// flags: completed items go to done, incomplete items go to pending
// only under RequeueIncomplete. This is how a recheck run targets
// previously failed or never-fetched items without re-running
// discovery.
func Rebuild(st *state.RunState, opts RebuildOptions) RebuildResult {
	var res RebuildResult
	st.Do(func(l *state.Ledger, q *state.Queue) {
		q.Reset()
		for _, it := range l.Snapshot() {
			if it.DetailFetched {
				q.Complete(it.ID)
				res.Done++
				continue
			}
			if opts.ClearErrors {
				l.ClearDetailFailure(it.ID)
			}
			if opts.RequeueIncomplete && q.EnqueueIfNew(it.ID) {
				res.Queued++
			}
		}
	})
	return res
}
