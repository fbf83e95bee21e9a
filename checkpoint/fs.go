package checkpoint

import (
	"context"
	"fmt"
	"os"

	"github.com/justapithecus/dredge/iox"
)

// FileStore persists the checkpoint document at a single path. Writes
// are atomic (temp file plus rename), so a crash mid-save leaves the
// previous checkpoint intact.
type FileStore struct {
	path string
}

// NewFileStore creates a file store for the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checkpoint: read %s: %w", s.path, err)
	}
	return data, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	if err := iox.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", s.path, err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: delete %s: %w", s.path, err)
	}
	return nil
}

// Verify FileStore implements the store interface.
var _ Store = (*FileStore)(nil)
