package types

// Snapshot is the export format, and the accepted import format.
// A legacy single-context snapshot lacks KnownSources; migration lifts it
// into a single-entry map on ingest.
type Snapshot struct {
	Source       SourceContext             `json:"source"`
	KnownSources map[SourceKey]KnownSource `json:"knownSources,omitempty"`
	AssetCount   int                       `json:"assetCount"`
	Assets       []*Item                   `json:"assets"`
}

// ImportResult reports the outcome of applying a snapshot to the ledger.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Queued  int `json:"queued"`
}
