package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/justapithecus/dredge/state"
)

// ErrNotFound is returned by Store.Load when no checkpoint exists.
var ErrNotFound = errors.New("checkpoint: not found")

// Store persists encoded checkpoint documents. Implementations cover the
// local filesystem, Redis, and in-memory (tests, scan dry runs).
type Store interface {
	// Load returns the stored document bytes, or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Save overwrites the stored document. Whole-document overwrite is
	// the contract; stores must never expose a partially written state.
	Save(ctx context.Context, data []byte) error

	// Delete removes the stored document. Deleting a missing document
	// is not an error.
	Delete(ctx context.Context) error
}

// Save captures, encodes, and stores the run state in one call.
func Save(ctx context.Context, store Store, runID string, st *state.RunState, now time.Time) error {
	data, err := Encode(Capture(runID, st, now))
	if err != nil {
		return err
	}
	return store.Save(ctx, data)
}

// Load reads and decodes the stored document, lifting legacy schemas.
func Load(ctx context.Context, store Store) (*Document, error) {
	data, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
