package database

import (
	"context"
	"sync"
)

// MemorySnapshotStore keeps the snapshot in process memory. It backs tests and
// throwaway runs; nothing survives a restart.
type MemorySnapshotStore struct {
	mu      sync.Mutex
	payload []byte
	saves   int

	// SaveErr, when set, is returned by Save without storing anything
	SaveErr error
}

// NewMemorySnapshotStore creates an empty MemorySnapshotStore
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payload == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.payload...), nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.payload = append([]byte(nil), payload...)
	s.saves++
	return nil
}

// SetSaveErr makes subsequent saves fail with err (nil restores normal behaviour)
func (s *MemorySnapshotStore) SetSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveErr = err
}

// Saves returns how many snapshots have been written
func (s *MemorySnapshotStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemorySnapshotStore) Ping(_ context.Context) error { return nil }

func (s *MemorySnapshotStore) Close() error { return nil }
