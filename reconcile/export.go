package reconcile

import (
	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// Export builds the snapshot of the current ledger: deep item copies in
// deterministic order plus the known-sources map. The result is the
// external contract shape, accepted back by Import unchanged.
func Export(st *state.RunState) *types.Snapshot {
	snap := &types.Snapshot{
		KnownSources: make(map[types.SourceKey]types.KnownSource),
	}
	st.Do(func(l *state.Ledger, q *state.Queue) {
		snap.Assets = l.Snapshot()
		for key, entry := range l.KnownSources() {
			snap.KnownSources[key] = entry
		}
	})
	snap.Source = st.Source
	snap.AssetCount = len(snap.Assets)
	return snap
}
