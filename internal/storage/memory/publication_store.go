package memory

import (
	"context"
	"sync"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// PublicationStore is an in-memory implementation of storage.PublicationStore.
// The unsent listings anti-join against the sibling stores the way the SQL
// implementation joins tables, so it needs both at construction.
type PublicationStore struct {
	mu    sync.RWMutex
	facts map[string]*domain.Publication // keyed by kind|item_id|class

	assets *AssetStore
	news   *NewsStore
}

// NewPublicationStore creates a new in-memory publication store backed by
// the given content stores.
func NewPublicationStore(assets *AssetStore, news *NewsStore) *PublicationStore {
	return &PublicationStore{
		facts:  make(map[string]*domain.Publication),
		assets: assets,
		news:   news,
	}
}

func factKey(kind domain.ContentKind, itemID string, class domain.DestinationClass) string {
	return string(kind) + "|" + itemID + "|" + string(class)
}

// Insert records a publication fact. Returns ErrDuplicateKey if a fact for
// (kind, item_id, destination_class) already exists.
func (s *PublicationStore) Insert(_ context.Context, p *domain.Publication) error {
	if p == nil || p.Kind == "" || p.ItemID == "" || p.DestinationClass == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := factKey(p.Kind, p.ItemID, p.DestinationClass)
	if _, exists := s.facts[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	factCopy := *p
	s.facts[key] = &factCopy
	return nil
}

// Exists reports whether a fact exists for the given triple.
func (s *PublicationStore) Exists(_ context.Context, kind domain.ContentKind, itemID string, class domain.DestinationClass) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.facts[factKey(kind, itemID, class)]
	return exists, nil
}

// ListUnsentAssets retrieves up to limit assets lacking a publication fact
// for the class, most recently launched first.
func (s *PublicationStore) ListUnsentAssets(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.Asset, error) {
	all, err := s.assets.ListRecent(ctx, 0)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Asset
	for _, a := range all {
		if _, sent := s.facts[factKey(domain.KindLaunch, a.ID, class)]; sent {
			continue
		}
		result = append(result, a)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// ListUnsentNews retrieves up to limit news items lacking a publication
// fact for the class, most recently published first.
func (s *PublicationStore) ListUnsentNews(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.NewsItem, error) {
	all, err := s.news.ListRecent(ctx, 0)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NewsItem
	for _, n := range all {
		if _, sent := s.facts[factKey(domain.KindNews, n.ID, class)]; sent {
			continue
		}
		result = append(result, n)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PublicationStore = (*PublicationStore)(nil)
