package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// NewsStore implements storage.NewsStore using PostgreSQL.
type NewsStore struct {
	pool *Pool
}

// NewNewsStore creates a new NewsStore.
func NewNewsStore(pool *Pool) *NewsStore {
	return &NewsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NewsStore = (*NewsStore)(nil)

const newsColumns = `
	id, title, title_key, description, url, symbol, chain,
	source, sentiment, tags, published_at, posted, created_at
`

// Insert adds a new item. The title_key unique constraint is the dedup
// boundary; violating it returns ErrDuplicateKey.
func (s *NewsStore) Insert(ctx context.Context, n *domain.NewsItem) error {
	if n == nil || n.ID == "" || n.TitleKey == "" {
		return storage.ErrInvalidInput
	}

	createdAt := n.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO news (
			id, title, title_key, description, url, symbol, chain,
			source, sentiment, tags, published_at, posted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		n.ID,
		n.Title,
		n.TitleKey,
		n.Description,
		n.URL,
		n.Symbol,
		string(n.Chain),
		n.Source,
		n.Sentiment,
		n.Tags,
		n.PublishedAt,
		n.Posted,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert news item: %w", err)
	}
	return nil
}

// GetByTitleKey retrieves an item by its normalized title, the dedup key.
// Returns ErrNotFound if not exists.
func (s *NewsStore) GetByTitleKey(ctx context.Context, titleKey string) (*domain.NewsItem, error) {
	query := `
		SELECT ` + newsColumns + `
		FROM news
		WHERE title_key = $1
	`

	row := s.pool.QueryRow(ctx, query, titleKey)
	n, err := scanNewsItem(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get news by title key: %w", err)
	}
	return n, nil
}

// GetByID retrieves an item by its ID. Returns ErrNotFound if not exists.
func (s *NewsStore) GetByID(ctx context.Context, id string) (*domain.NewsItem, error) {
	query := `
		SELECT ` + newsColumns + `
		FROM news
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	n, err := scanNewsItem(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get news by id: %w", err)
	}
	return n, nil
}

// ListRecent retrieves up to limit items, most recently published first.
// A non-positive limit returns everything.
func (s *NewsStore) ListRecent(ctx context.Context, limit int) ([]*domain.NewsItem, error) {
	query := `
		SELECT ` + newsColumns + `
		FROM news
		ORDER BY published_at DESC, id ASC
	`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list recent news: %w", err)
	}
	defer rows.Close()

	return scanNewsItems(rows)
}

// MarkPosted sets the primary-destination convenience flag.
func (s *NewsStore) MarkPosted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE news SET posted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark news posted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanNewsItem scans a single row into a NewsItem.
func scanNewsItem(row pgx.Row) (*domain.NewsItem, error) {
	var n domain.NewsItem
	var chainStr string

	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.TitleKey,
		&n.Description,
		&n.URL,
		&n.Symbol,
		&chainStr,
		&n.Source,
		&n.Sentiment,
		&n.Tags,
		&n.PublishedAt,
		&n.Posted,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Chain = domain.Chain(chainStr)
	return &n, nil
}

// scanNewsItems scans multiple rows into a slice of NewsItem.
func scanNewsItems(rows pgx.Rows) ([]*domain.NewsItem, error) {
	var items []*domain.NewsItem

	for rows.Next() {
		n, err := scanNewsItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan news row: %w", err)
		}
		items = append(items, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news rows: %w", err)
	}

	return items, nil
}
