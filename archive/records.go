package archive

import "github.com/justapithecus/dredge/types"

// RecordKind discriminator values for archive records.
const (
	RecordKindManifest = "snapshot_manifest"
	RecordKindAsset    = "snapshot_asset"
)

// toManifestRecord builds the manifest map for one archived snapshot.
// Lode HiveLayout requires records as map[string]any.
func toManifestRecord(snap *types.Snapshot, cfg Config) map[string]any {
	sources := make([]map[string]any, 0, len(snap.KnownSources))
	for key, entry := range snap.KnownSources {
		sources = append(sources, map[string]any{
			"source_key":    string(key),
			"source_type":   entry.Type,
			"source_id":     entry.ID,
			"url":           entry.URL,
			"first_seen_at": entry.FirstSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"last_seen_at":  entry.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return map[string]any{
		"record_kind":   RecordKindManifest,
		"source_type":   snap.Source.Type,
		"source_id":     snap.Source.ID,
		"source_url":    snap.Source.URL,
		"asset_count":   snap.AssetCount,
		"known_sources": sources,
		"source":        cfg.Source,
		"category":      cfg.Category,
		"day":           cfg.Day,
		"run_id":        cfg.RunID,
	}
}

// toAssetRecord builds the per-asset map. Optional content fields are
// present only when the item carries them.
func toAssetRecord(it *types.Item, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind":          RecordKindAsset,
		"item_id":              string(it.ID),
		"item_url":             it.ItemURL,
		"detail_fetched":       it.DetailFetched,
		"downloaded_preview":   it.DownloadedPreview,
		"seen_in_count":        it.SeenInCount,
		"first_seen_at":        it.FirstSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"last_seen_at":         it.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"last_seen_source_key": string(it.LastSeenSourceKey),
		"source":               cfg.Source,
		"category":             cfg.Category,
		"day":                  cfg.Day,
		"run_id":               cfg.RunID,
	}

	keys := make([]string, 0, len(it.SourceKeys))
	for _, k := range it.SourceKeys {
		keys = append(keys, string(k))
	}
	m["source_keys"] = keys

	putStr(m, "file_name", it.FileName)
	putStr(m, "preview_url", it.PreviewURL)
	putStr(m, "content_type_label", it.ContentTypeLabel)
	putStr(m, "file_type", it.FileType)
	putStr(m, "status", it.Status)
	putStr(m, "expiration_date", it.ExpirationDate)
	putStr(m, "usage_rights", it.UsageRights)
	putStr(m, "public_url", it.PublicURL)
	putStr(m, "file_size", it.FileSize)
	putStr(m, "detail_error", it.DetailError)
	if it.DetailFetchStatus != nil {
		m["detail_fetch_status"] = *it.DetailFetchStatus
	}

	return m
}

func putStr(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}
