package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Asset // keyed by asset id
	byAddr map[string]string        // chain|lower(address) -> asset id
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		data:   make(map[string]*domain.Asset),
		byAddr: make(map[string]string),
	}
}

func addrKey(chain domain.Chain, address string) string {
	return string(chain) + "|" + strings.ToLower(address)
}

// Insert adds a new asset. Returns ErrDuplicateKey if (chain, address)
// already exists.
func (s *AssetStore) Insert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" || a.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := addrKey(a.Chain, a.Address)
	if _, exists := s.byAddr[key]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	assetCopy := *a
	s.data[a.ID] = &assetCopy
	s.byAddr[key] = a.ID
	return nil
}

// GetByAddress retrieves an asset by (chain, address), case-insensitive on
// the address. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByAddress(_ context.Context, chain domain.Chain, address string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byAddr[addrKey(chain, address)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	assetCopy := *s.data[id]
	return &assetCopy, nil
}

// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	assetCopy := *a
	return &assetCopy, nil
}

// ListRecent retrieves up to limit assets, most recently launched first.
// limit <= 0 returns everything.
func (s *AssetStore) ListRecent(_ context.Context, limit int) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Asset, 0, len(s.data))
	for _, a := range s.data {
		assetCopy := *a
		result = append(result, &assetCopy)
	}

	// Sort by launched_at DESC, id as tiebreak for determinism
	sort.Slice(result, func(i, j int) bool {
		if result[i].LaunchedAt != result[j].LaunchedAt {
			return result[i].LaunchedAt > result[j].LaunchedAt
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkPosted sets the primary-destination convenience flag.
func (s *AssetStore) MarkPosted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	a.Posted = true
	return nil
}

// Verify interface compliance at compile time.
var _ storage.AssetStore = (*AssetStore)(nil)
