package memory

import (
	"context"
	"sync"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	rows []*domain.MarketSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// InsertBatch appends observations. The series is append-only.
func (s *SnapshotStore) InsertBatch(_ context.Context, snapshots []*domain.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		if snap == nil {
			return storage.ErrInvalidInput
		}
		snapCopy := *snap
		s.rows = append(s.rows, &snapCopy)
	}
	return nil
}

// All returns a copy of every stored row in insertion order.
func (s *SnapshotStore) All() []*domain.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MarketSnapshot, 0, len(s.rows))
	for _, snap := range s.rows {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}
	return result
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
