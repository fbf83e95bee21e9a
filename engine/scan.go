package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/dredge/catalog"
	"github.com/justapithecus/dredge/state"
)

// ScanVisible performs a single extraction pass over the view and
// upserts everything visible, without starting the discovery loop or
// the worker pool. Returns the number of newly discovered items.
func ScanVisible(ctx context.Context, st *state.RunState, view catalog.View) (int, error) {
	partials, err := view.Extract(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan: extract: %w", err)
	}
	return st.ObserveVisible(partials, time.Now()), nil
}
