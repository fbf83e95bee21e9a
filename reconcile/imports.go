package reconcile

import (
	"time"

	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// Import merges a snapshot into the run state. New records are inserted
// and queued when they lack completed detail; existing records are
// enriched fill-if-absent, with incoming detailFetched=true treated as
// authoritative (a completed detail never regresses to incomplete).
// Malformed records are counted and skipped, never aborting the batch.
// Items not referenced by the snapshot are untouched.
func Import(st *state.RunState, snap *types.Snapshot, now time.Time) types.ImportResult {
	Migrate(snap, now)
	importKey := snap.Source.Key()
	if snap.Source.Type == "" {
		// No source context to attribute; never stamp the empty ":" key.
		importKey = ""
	}

	var res types.ImportResult
	st.Do(func(l *state.Ledger, q *state.Queue) {
		for key, entry := range snap.KnownSources {
			if _, ok := l.KnownSources()[key]; !ok {
				l.SetKnownSource(key, entry)
			}
		}

		for _, rec := range snap.Assets {
			id := rec.ID
			if id == "" {
				id = types.ItemIDFromURL(rec.ItemURL)
			}
			if id == "" || rec.ItemURL == "" {
				res.Skipped++
				continue
			}

			existing := l.Get(id)
			if existing == nil {
				it := rec.Clone()
				it.ID = id
				it.ItemURL = types.NormalizeURL(rec.ItemURL)
				if len(it.SourceKeys) == 0 && importKey != "" {
					it.SourceKeys = []types.SourceKey{importKey}
				}
				it.SeenInCount = len(it.SourceKeys)
				if it.FirstSeenAt.IsZero() {
					it.FirstSeenAt = now
				}
				if it.LastSeenAt.IsZero() {
					it.LastSeenAt = now
				}
				l.PutItem(it)
				res.Added++

				if it.DetailFetched {
					q.Complete(id)
				} else if q.EnqueueIfNew(id) {
					res.Queued++
				}
				continue
			}

			mergeRecord(existing, rec, importKey, now)
			if existing.DetailFetched {
				q.Complete(id)
			} else if q.EnqueueIfNew(id) {
				res.Queued++
			}
			res.Updated++
		}
	})
	return res
}

// mergeRecord enriches an existing item from an imported record.
// Identity fields are never touched.
func mergeRecord(dst, rec *types.Item, importKey types.SourceKey, now time.Time) {
	fillIfAbsent(&dst.FileName, rec.FileName)
	fillIfAbsent(&dst.PreviewURL, rec.PreviewURL)
	fillIfAbsent(&dst.ContentTypeLabel, rec.ContentTypeLabel)
	fillIfAbsent(&dst.FileType, rec.FileType)
	fillIfAbsent(&dst.Status, rec.Status)
	fillIfAbsent(&dst.ExpirationDate, rec.ExpirationDate)
	fillIfAbsent(&dst.UsageRights, rec.UsageRights)
	fillIfAbsent(&dst.PublicURL, rec.PublicURL)
	fillIfAbsent(&dst.FileSize, rec.FileSize)

	for _, key := range rec.SourceKeys {
		dst.AddSource(key)
	}
	if importKey != "" {
		dst.AddSource(importKey)
	}
	if dst.LastSeenAt.Before(now) {
		dst.LastSeenAt = now
	}

	if rec.DetailFetched {
		dst.DetailFetched = true
		dst.DetailError = nil
		if dst.DetailFetchStatus == nil && rec.DetailFetchStatus != nil {
			v := *rec.DetailFetchStatus
			dst.DetailFetchStatus = &v
		}
	}
	if rec.DownloadedPreview {
		dst.DownloadedPreview = true
	}
}

// fillIfAbsent mirrors the ledger merge rule for import records.
func fillIfAbsent(dst **string, src *string) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
