package memory

import (
	"context"
	"sort"
	"sync"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// NewsStore is an in-memory implementation of storage.NewsStore.
type NewsStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.NewsItem // keyed by item id
	byTitle map[string]string           // title_key -> item id
}

// NewNewsStore creates a new in-memory news store.
func NewNewsStore() *NewsStore {
	return &NewsStore{
		data:    make(map[string]*domain.NewsItem),
		byTitle: make(map[string]string),
	}
}

// Insert adds a new item. Returns ErrDuplicateKey if the normalized title
// already exists.
func (s *NewsStore) Insert(_ context.Context, n *domain.NewsItem) error {
	if n == nil || n.ID == "" || n.TitleKey == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTitle[n.TitleKey]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.data[n.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	itemCopy := *n
	s.data[n.ID] = &itemCopy
	s.byTitle[n.TitleKey] = n.ID
	return nil
}

// GetByTitleKey retrieves an item by its normalized title. Returns
// ErrNotFound if not exists.
func (s *NewsStore) GetByTitleKey(_ context.Context, titleKey string) (*domain.NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byTitle[titleKey]
	if !exists {
		return nil, storage.ErrNotFound
	}

	itemCopy := *s.data[id]
	return &itemCopy, nil
}

// GetByID retrieves an item by its ID. Returns ErrNotFound if not exists.
func (s *NewsStore) GetByID(_ context.Context, id string) (*domain.NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	itemCopy := *n
	return &itemCopy, nil
}

// ListRecent retrieves up to limit items, most recently published first.
// limit <= 0 returns everything.
func (s *NewsStore) ListRecent(_ context.Context, limit int) ([]*domain.NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.NewsItem, 0, len(s.data))
	for _, n := range s.data {
		itemCopy := *n
		result = append(result, &itemCopy)
	}

	// Sort by published_at DESC, id as tiebreak for determinism
	sort.Slice(result, func(i, j int) bool {
		if result[i].PublishedAt != result[j].PublishedAt {
			return result[i].PublishedAt > result[j].PublishedAt
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkPosted sets the primary-destination convenience flag.
func (s *NewsStore) MarkPosted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	n.Posted = true
	return nil
}

// Verify interface compliance at compile time.
var _ storage.NewsStore = (*NewsStore)(nil)
