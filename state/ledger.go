// Package state holds the owned run state of a crawl: the deduplicated
// item ledger, the four-way work queue, and the run bookkeeping that
// checkpoints serialize. The structures here are plain (unsynchronized);
// RunState provides the locked compound operations the engine loops use.
package state

import (
	"time"

	"github.com/justapithecus/dredge/types"
)

// Ledger is the deduplicated, multi-source map of items plus the
// known-sources map. Items are never deleted except by a full reset.
type Ledger struct {
	items        map[types.ItemID]*types.Item
	knownSources map[types.SourceKey]types.KnownSource
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		items:        make(map[types.ItemID]*types.Item),
		knownSources: make(map[types.SourceKey]types.KnownSource),
	}
}

// Len returns the number of known items.
func (l *Ledger) Len() int { return len(l.items) }

// Get returns the item for id, or nil if unknown.
func (l *Ledger) Get(id types.ItemID) *types.Item { return l.items[id] }

// Items returns the live item map. Callers outside a locked RunState
// operation must not mutate it; use Snapshot for safe copies.
func (l *Ledger) Items() map[types.ItemID]*types.Item { return l.items }

// KnownSources returns the live known-sources map.
func (l *Ledger) KnownSources() map[types.SourceKey]types.KnownSource {
	return l.knownSources
}

// TouchSource records that the engine operated against the given context,
// creating or refreshing its known-sources entry.
func (l *Ledger) TouchSource(src types.SourceContext, now time.Time) {
	key := src.Key()
	entry, ok := l.knownSources[key]
	if !ok {
		entry = types.KnownSource{
			Type:        src.Type,
			ID:          src.ID,
			URL:         src.URL,
			FirstSeenAt: now,
		}
	}
	if src.URL != "" {
		entry.URL = src.URL
	}
	entry.LastSeenAt = now
	l.knownSources[key] = entry
}

// SetKnownSource installs a known-sources entry verbatim. Used by
// migration and import, which carry their own timestamps.
func (l *Ledger) SetKnownSource(key types.SourceKey, entry types.KnownSource) {
	l.knownSources[key] = entry
}

// PutItem installs an item verbatim, replacing any existing entry with
// the same id. Used by checkpoint restore, migration, and import paths
// that carry fully formed records.
func (l *Ledger) PutItem(it *types.Item) {
	l.items[it.ID] = it
}

// Upsert inserts a new item if its id is unseen, initializing provenance
// from sourceKey; otherwise it merges fill-if-absent into the existing
// item, unions sourceKey into sourceKeys, and refreshes the recency
// fields. Returns true when the item was newly inserted.
//
// Identity is immutable: an existing item's URL is never overwritten.
func (l *Ledger) Upsert(p types.PartialItem, sourceKey types.SourceKey, now time.Time) bool {
	it, ok := l.items[p.ID]
	if !ok {
		it = &types.Item{
			ID:          p.ID,
			ItemURL:     p.ItemURL,
			FirstSeenAt: now,
		}
		l.items[p.ID] = it
	}

	fillIfAbsent(&it.FileName, p.FileName)
	fillIfAbsent(&it.PreviewURL, p.PreviewURL)
	fillIfAbsent(&it.ContentTypeLabel, p.ContentTypeLabel)
	fillIfAbsent(&it.FileType, p.FileType)

	it.AddSource(sourceKey)
	it.LastSeenAt = now
	it.LastSeenSourceKey = sourceKey

	return !ok
}

// RecordDetail marks the item's detail as fetched, clears any prior
// failure, and merges the parsed fields fill-if-absent.
func (l *Ledger) RecordDetail(id types.ItemID, fields types.ParsedFields, status int) {
	it, ok := l.items[id]
	if !ok {
		return
	}

	it.DetailFetched = true
	it.DetailError = nil
	it.DetailFetchStatus = &status

	fillIfAbsent(&it.FileName, fields.FileName)
	fillIfAbsent(&it.Status, fields.Status)
	fillIfAbsent(&it.ExpirationDate, fields.ExpirationDate)
	fillIfAbsent(&it.UsageRights, fields.UsageRights)
	fillIfAbsent(&it.PublicURL, fields.PublicURL)
	fillIfAbsent(&it.FileSize, fields.FileSize)
	fillIfAbsent(&it.PreviewURL, fields.PreviewURL)
}

// RecordDetailFailure records a classified per-item failure. DetailFetched
// stays false; a later successful fetch clears the error.
func (l *Ledger) RecordDetailFailure(id types.ItemID, class types.FailureClass, description string, status *int) {
	it, ok := l.items[id]
	if !ok {
		return
	}

	desc := string(class) + ": " + description
	it.DetailError = &desc
	if status != nil {
		v := *status
		it.DetailFetchStatus = &v
	}
}

// ClearDetailFailure drops the recorded failure and status for an item.
// Used by the recheck flow when the operator asks for a clean slate.
func (l *Ledger) ClearDetailFailure(id types.ItemID) {
	if it, ok := l.items[id]; ok {
		it.DetailError = nil
		it.DetailFetchStatus = nil
	}
}

// MarkPreviewDownloaded flags the item's preview resource as fetched.
func (l *Ledger) MarkPreviewDownloaded(id types.ItemID) {
	if it, ok := l.items[id]; ok {
		it.DownloadedPreview = true
	}
}

// Snapshot returns deep copies of all items, sorted by first-seen time
// then id for deterministic export order.
func (l *Ledger) Snapshot() []*types.Item {
	out := make([]*types.Item, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it.Clone())
	}
	sortItems(out)
	return out
}

// fillIfAbsent sets dst only when it is currently unset and src carries a
// value. A field already set to a non-nil value is never overwritten.
func fillIfAbsent(dst **string, src *string) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
