// Package archive writes exported snapshots as partitioned dataset
// records through Lode. Each archived export becomes one manifest
// record plus one record per asset under the
// source/category/day/run_id Hive layout, so downstream jobs can query
// crawl history without parsing whole snapshot files.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/dredge/types"
)

// DefaultDataset is the Lode dataset ID for archived snapshots.
const DefaultDataset = "dredge"

// DefaultCategory is the partition value for snapshot archive records.
const DefaultCategory = "snapshot"

// DeriveDay computes the day partition value from a run timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds snapshot archive configuration. All partition keys are
// required; empty Dataset and Category fall back to the defaults.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key for the crawled source context
	// (source key, e.g. "spaces:42").
	Source string
	// Category is the partition key for the record category.
	Category string
	// Day is the partition key derived from the export time (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for the run that produced the snapshot.
	RunID string
}

// Validate checks that required partition keys are present.
func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.New("archive: source partition key is required")
	}
	if c.Day == "" {
		return errors.New("archive: day partition key is required")
	}
	if c.RunID == "" {
		return errors.New("archive: run_id partition key is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
}

// Writer persists snapshots to a Lode dataset.
type Writer struct {
	dataset lode.Dataset
	config  Config
}

// NewWriter creates an archive writer with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWriter(cfg Config, factory lode.StoreFactory) (*Writer, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := lode.NewDataset(
		lode.DatasetID(cfg.Dataset),
		factory,
		lode.WithHiveLayout("source", "category", "day", "run_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, err
	}

	return &Writer{dataset: ds, config: cfg}, nil
}

// NewFSWriter creates an archive writer with filesystem storage rooted
// at the given directory.
func NewFSWriter(cfg Config, root string) (*Writer, error) {
	return NewWriter(cfg, lode.NewFSFactory(root))
}

// WriteSnapshot writes the snapshot as one manifest record followed by
// one record per asset. Returns the number of records written.
func (w *Writer) WriteSnapshot(ctx context.Context, snap *types.Snapshot) (int, error) {
	records := make([]any, 0, 1+len(snap.Assets))
	records = append(records, toManifestRecord(snap, w.config))
	for _, it := range snap.Assets {
		records = append(records, toAssetRecord(it, w.config))
	}

	if _, err := w.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Close releases writer resources.
func (w *Writer) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}
