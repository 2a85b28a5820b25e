package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// PublicationStore implements storage.PublicationStore using PostgreSQL.
type PublicationStore struct {
	pool *Pool
}

// NewPublicationStore creates a new PublicationStore.
func NewPublicationStore(pool *Pool) *PublicationStore {
	return &PublicationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PublicationStore = (*PublicationStore)(nil)

// Insert records a publication fact. The (kind, item_id, destination_class)
// unique constraint makes the fact at-most-once; violating it returns
// ErrDuplicateKey.
func (s *PublicationStore) Insert(ctx context.Context, p *domain.Publication) error {
	if p == nil || p.ID == "" || p.ItemID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO publications (
			id, kind, item_id, destination_class, destination_id, message_id, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID,
		string(p.Kind),
		p.ItemID,
		string(p.DestinationClass),
		p.DestinationID,
		p.MessageID,
		p.SentAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

// Exists reports whether a fact exists for the given triple.
func (s *PublicationStore) Exists(ctx context.Context, kind domain.ContentKind, itemID string, class domain.DestinationClass) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM publications
			WHERE kind = $1 AND item_id = $2 AND destination_class = $3
		)
	`

	var exists bool
	err := s.pool.QueryRow(ctx, query, string(kind), itemID, string(class)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check publication exists: %w", err)
	}
	return exists, nil
}

// ListUnsentAssets retrieves up to limit assets lacking a fact for the
// class, most recently launched first. A non-positive limit returns
// everything.
func (s *PublicationStore) ListUnsentAssets(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.Asset, error) {
	query := `
		SELECT
			a.id, a.symbol, a.name, a.chain, a.address,
			a.market_cap, a.volume_24h, a.price_usd, a.price_change_24h,
			a.liquidity_usd, a.holder_count, a.risk_level, a.urls, a.source,
			a.launched_at, a.posted, a.created_at
		FROM assets a
		LEFT JOIN publications p
			ON p.kind = $1 AND p.item_id = a.id AND p.destination_class = $2
		WHERE p.id IS NULL
		ORDER BY a.launched_at DESC, a.id ASC
	`

	rows, err := s.queryWithLimit(ctx, query, limit, string(domain.KindLaunch), string(class))
	if err != nil {
		return nil, fmt.Errorf("list unsent assets: %w", err)
	}
	defer rows.Close()

	return scanAssets(rows)
}

// ListUnsentNews retrieves up to limit news items lacking a fact for the
// class, most recently published first. A non-positive limit returns
// everything.
func (s *PublicationStore) ListUnsentNews(ctx context.Context, class domain.DestinationClass, limit int) ([]*domain.NewsItem, error) {
	query := `
		SELECT
			n.id, n.title, n.title_key, n.description, n.url, n.symbol, n.chain,
			n.source, n.sentiment, n.tags, n.published_at, n.posted, n.created_at
		FROM news n
		LEFT JOIN publications p
			ON p.kind = $1 AND p.item_id = n.id AND p.destination_class = $2
		WHERE p.id IS NULL
		ORDER BY n.published_at DESC, n.id ASC
	`

	rows, err := s.queryWithLimit(ctx, query, limit, string(domain.KindNews), string(class))
	if err != nil {
		return nil, fmt.Errorf("list unsent news: %w", err)
	}
	defer rows.Close()

	return scanNewsItems(rows)
}

// queryWithLimit appends a LIMIT clause when limit is positive.
func (s *PublicationStore) queryWithLimit(ctx context.Context, query string, limit int, args ...any) (pgx.Rows, error) {
	if limit > 0 {
		args = append(args, limit)
		return s.pool.Query(ctx, fmt.Sprintf("%s LIMIT $%d", query, len(args)), args...)
	}
	return s.pool.Query(ctx, query, args...)
}
