// Package reader provides read-only checkpoint access for CLI commands.
//
// Status and the TUI read the persisted checkpoint directly instead of
// attaching to a running engine, so they work whether or not a crawl is
// in flight.
package reader

import (
	"context"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/types"
)

// Reader summarizes checkpoint documents from a store.
type Reader struct {
	store checkpoint.Store
}

// NewReader creates a reader over the given checkpoint store.
func NewReader(store checkpoint.Store) *Reader {
	return &Reader{store: store}
}

// Status loads and summarizes the latest checkpoint.
// Returns checkpoint.ErrNotFound when no checkpoint exists.
func (r *Reader) Status(ctx context.Context) (*RunStatus, error) {
	doc, err := checkpoint.Load(ctx, r.store)
	if err != nil {
		return nil, err
	}
	return Summarize(doc), nil
}

// Summarize derives the status view from a decoded document.
func Summarize(doc *checkpoint.Document) *RunStatus {
	phase := doc.State.Phase
	errored := len(doc.State.Errored)
	return &RunStatus{
		RunID:                 doc.RunID,
		SavedAt:               doc.SavedAt,
		Source:                doc.State.Source,
		Phase:                 phase,
		Discovered:            len(doc.State.Items),
		Pending:               len(doc.State.Pending),
		Done:                  len(doc.State.Done),
		Errored:               errored,
		Running:               phase == types.PhaseStarting || phase == types.PhaseRunning,
		CompletedSuccessfully: phase == types.PhaseCompleted && errored == 0,
		CompletedWithErrors:   phase == types.PhaseCompleted && errored > 0,
		DiscoveredComplete:    doc.State.DiscoveredComplete,
		AuthExpired:           doc.State.AuthExpired,
		Counters:              doc.State.Counters,
	}
}
