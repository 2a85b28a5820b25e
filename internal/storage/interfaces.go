package storage

import (
	"context"

	"launch-radar/internal/domain"
)

// AssetStore provides access to assets storage.
type AssetStore interface {
	// Insert adds a new asset. Returns ErrDuplicateKey if (chain, address)
	// already exists.
	Insert(ctx context.Context, a *domain.Asset) error

	// GetByAddress retrieves an asset by its dedup key. The address match is
	// case-insensitive. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, chain domain.Chain, address string) (*domain.Asset, error)

	// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Asset, error)

	// ListRecent retrieves up to limit assets, most recently launched first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Asset, error)

	// MarkPosted sets the primary-destination convenience flag.
	// Returns ErrNotFound if the asset does not exist.
	MarkPosted(ctx context.Context, id string) error
}

// NewsStore provides access to news storage.
type NewsStore interface {
	// Insert adds a new item. Returns ErrDuplicateKey if the normalized
	// title already exists.
	Insert(ctx context.Context, n *domain.NewsItem) error

	// GetByTitleKey retrieves an item by its normalized title, the dedup
	// key. Returns ErrNotFound if not exists.
	GetByTitleKey(ctx context.Context, titleKey string) (*domain.NewsItem, error)

	// GetByID retrieves an item by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.NewsItem, error)

	// ListRecent retrieves up to limit items, most recently published first.
	ListRecent(ctx context.Context, limit int) ([]*domain.NewsItem, error)

	// MarkPosted sets the primary-destination convenience flag.
	// Returns ErrNotFound if the item does not exist.
	MarkPosted(ctx context.Context, id string) error
}

// PublicationStore provides access to publications storage. Each fact is
// written once; destination classes are tracked independently.
type PublicationStore interface {
	// Insert records a publication fact. Returns ErrDuplicateKey if a fact
	// for (kind, item_id, destination_class) already exists.
	Insert(ctx context.Context, p *domain.Publication) error

	// Exists reports whether a fact exists for the given triple.
	Exists(ctx context.Context, kind domain.ContentKind, itemID string, class domain.DestinationClass) (bool, error)

	// ListUnsentAssets retrieves up to limit assets lacking a fact for the
	// class, most recently launched first.
	ListUnsentAssets(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.Asset, error)

	// ListUnsentNews retrieves up to limit news items lacking a fact for
	// the class, most recently published first.
	ListUnsentNews(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.NewsItem, error)
}

// SnapshotStore provides access to market_snapshots storage.
type SnapshotStore interface {
	// InsertBatch appends observations. The series is append-only and
	// enforces no uniqueness.
	InsertBatch(ctx context.Context, snapshots []*domain.MarketSnapshot) error
}
