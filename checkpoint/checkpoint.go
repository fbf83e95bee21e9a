// Package checkpoint persists and restores crawl run state. The current
// document schema is msgpack-encoded; decoding accepts the previous
// schema version and the browser-era JSON export, lifting both into the
// current shape so a resumed run never starts from scratch.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/dredge/state"
	"github.com/justapithecus/dredge/types"
)

// Document is the persisted form of one run's state.
type Document struct {
	Version int          `msgpack:"version" json:"version"`
	RunID   string       `msgpack:"run_id" json:"runId"`
	SavedAt time.Time    `msgpack:"saved_at" json:"savedAt"`
	State   state.Export `msgpack:"state" json:"state"`
}

// Capture builds a document from the run state's exported view.
func Capture(runID string, st *state.RunState, now time.Time) *Document {
	return &Document{
		Version: types.CheckpointSchemaVersion,
		RunID:   runID,
		SavedAt: now,
		State:   st.Export(),
	}
}

// Encode serializes the document with msgpack.
func Encode(doc *Document) ([]byte, error) {
	data, err := msgpack.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode: %w", err)
	}
	return data, nil
}

// Decode deserializes checkpoint bytes, lifting older schemas forward.
// JSON input (browser-era export) is detected by its leading brace.
func Decode(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("checkpoint: empty document")
	}

	if data[0] == '{' {
		return decodeLegacyJSON(data)
	}

	var probe struct {
		Version int `msgpack:"version"`
	}
	if err := msgpack.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}

	switch probe.Version {
	case types.CheckpointSchemaVersion:
		var doc Document
		if err := msgpack.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("checkpoint: decode v%d: %w", probe.Version, err)
		}
		return &doc, nil
	case 1:
		var legacy legacyV1
		if err := msgpack.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("checkpoint: decode v1: %w", err)
		}
		return legacy.lift(), nil
	default:
		return nil, fmt.Errorf("checkpoint: unsupported schema version %d", probe.Version)
	}
}

// legacyV1 is the first msgpack schema: a flat asset list plus the
// pending id queue, with no known-sources map and no counters. The
// browser-era JSON export shares this shape.
type legacyV1 struct {
	Version int                 `msgpack:"version" json:"version"`
	RunID   string              `msgpack:"run_id" json:"runId"`
	SavedAt time.Time           `msgpack:"saved_at" json:"savedAt"`
	Source  types.SourceContext `msgpack:"source" json:"source"`
	Assets  []*types.Item       `msgpack:"assets" json:"assets"`
	Queue   []types.ItemID      `msgpack:"queue" json:"queue"`
}

// lift upgrades a v1 document: done/errored partitions are derived from
// each item's detail bookkeeping, and the known-sources map is
// synthesized from item provenance.
func (l *legacyV1) lift() *Document {
	export := state.Export{
		// v1 predates phase tracking; a legacy checkpoint only exists
		// because a run was interrupted mid-flight.
		Phase:        types.PhasePaused,
		Source:       l.Source,
		Items:        l.Assets,
		KnownSources: make(map[types.SourceKey]types.KnownSource),
		Pending:      append([]types.ItemID(nil), l.Queue...),
	}

	queued := make(map[types.ItemID]struct{}, len(l.Queue))
	for _, id := range l.Queue {
		queued[id] = struct{}{}
	}

	for _, it := range l.Assets {
		switch {
		case it.DetailFetched:
			export.Done = append(export.Done, it.ID)
			export.Counters.DetailFetched++
		case it.DetailError != nil:
			export.Errored = append(export.Errored, it.ID)
			export.Counters.DetailErrors++
		default:
			if _, ok := queued[it.ID]; !ok {
				export.Pending = append(export.Pending, it.ID)
			}
		}

		for _, key := range it.SourceKeys {
			entry, ok := export.KnownSources[key]
			if !ok {
				src, err := types.ParseSourceKey(key)
				if err != nil {
					continue
				}
				entry = types.KnownSource{
					Type:        src.Type,
					ID:          src.ID,
					FirstSeenAt: it.FirstSeenAt,
					LastSeenAt:  it.LastSeenAt,
				}
			}
			if it.FirstSeenAt.Before(entry.FirstSeenAt) {
				entry.FirstSeenAt = it.FirstSeenAt
			}
			if it.LastSeenAt.After(entry.LastSeenAt) {
				entry.LastSeenAt = it.LastSeenAt
			}
			export.KnownSources[key] = entry
		}
	}

	if entry, ok := export.KnownSources[l.Source.Key()]; ok && l.Source.URL != "" {
		entry.URL = l.Source.URL
		export.KnownSources[l.Source.Key()] = entry
	}

	return &Document{
		Version: types.CheckpointSchemaVersion,
		RunID:   l.RunID,
		SavedAt: l.SavedAt,
		State:   export,
	}
}

func decodeLegacyJSON(data []byte) (*Document, error) {
	var legacy legacyV1
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("checkpoint: decode legacy JSON: %w", err)
	}
	if legacy.Version > 1 {
		// Current-schema documents are never JSON; a higher version here
		// means the file was produced by something newer than us.
		return nil, fmt.Errorf("checkpoint: unsupported JSON schema version %d", legacy.Version)
	}
	return legacy.lift(), nil
}
