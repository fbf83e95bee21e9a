// Package reconcile merges external state into the ledger: snapshot
// import, legacy-schema migration, and queue rebuild (the recheck
// flow). Every operation is idempotent with respect to repeated
// application of the same input.
package reconcile

import (
	"time"

	"github.com/justapithecus/dredge/types"
)

// Migrate lifts a legacy single-context snapshot into the multi-source
// shape: a populated known-sources map and the snapshot's source key
// seeded onto assets missing provenance. Snapshots already in the
// current shape pass through
// unchanged, so applying Migrate twice is the same as applying it once.
// The upgrade never discards collected items or detail data.
func Migrate(snap *types.Snapshot, now time.Time) *types.Snapshot {
	key := snap.Source.Key()
	// A snapshot without a source context cannot seed provenance; those
	// assets keep empty sourceKeys and pick up the import-time key.
	hasSource := snap.Source.Type != ""

	for _, it := range snap.Assets {
		if len(it.SourceKeys) == 0 && hasSource {
			it.SourceKeys = []types.SourceKey{key}
		}
		it.SeenInCount = len(it.SourceKeys)
		if it.FirstSeenAt.IsZero() {
			it.FirstSeenAt = now
		}
		if it.LastSeenAt.IsZero() {
			it.LastSeenAt = it.FirstSeenAt
		}
		if it.LastSeenSourceKey == "" && hasSource {
			it.LastSeenSourceKey = key
		}
	}

	if snap.KnownSources == nil {
		snap.KnownSources = make(map[types.SourceKey]types.KnownSource)
	}
	if _, ok := snap.KnownSources[key]; !ok && snap.Source.Type != "" {
		entry := types.KnownSource{
			Type: snap.Source.Type,
			ID:   snap.Source.ID,
			URL:  snap.Source.URL,
		}
		for _, it := range snap.Assets {
			if entry.FirstSeenAt.IsZero() || it.FirstSeenAt.Before(entry.FirstSeenAt) {
				entry.FirstSeenAt = it.FirstSeenAt
			}
			if it.LastSeenAt.After(entry.LastSeenAt) {
				entry.LastSeenAt = it.LastSeenAt
			}
		}
		if entry.FirstSeenAt.IsZero() {
			entry.FirstSeenAt = now
			entry.LastSeenAt = now
		}
		snap.KnownSources[key] = entry
	}

	snap.AssetCount = len(snap.Assets)
	return snap
}
