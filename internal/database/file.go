package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSnapshotStore keeps the snapshot in a single file on local disk.
// Writes go to a temp file in the same directory which is synced and renamed
// over the target.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a new FileSnapshotStore, creating the parent directory
func NewFileSnapshotStore(path string) (*FileSnapshotStore, error) {
	if path == "" {
		return nil, errors.New("snapshot path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create snapshot dir: %v", ErrConnection, err)
	}
	return &FileSnapshotStore{path: path}, nil
}

// Path returns the snapshot file location
func (s *FileSnapshotStore) Path() string { return s.path }

// Load reads the snapshot file
func (s *FileSnapshotStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrQuery, s.path, err)
	}
	return data, nil
}

// Save replaces the snapshot file
func (s *FileSnapshotStore) Save(_ context.Context, payload []byte) (retErr error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrQuery, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("%w: write temp: %v", ErrQuery, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp: %v", ErrQuery, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", ErrQuery, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename snapshot: %v", ErrQuery, err)
	}
	return nil
}

// Ping checks the snapshot directory is still there
func (s *FileSnapshotStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

func (s *FileSnapshotStore) Close() error { return nil }
