package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

const assetColumns = `
	id, symbol, name, chain, address,
	market_cap, volume_24h, price_usd, price_change_24h,
	liquidity_usd, holder_count, risk_level, urls, source,
	launched_at, posted, created_at
`

// Insert adds a new asset. The (chain, address) unique constraint is the
// dedup boundary; violating it returns ErrDuplicateKey.
func (s *AssetStore) Insert(ctx context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" || a.Address == "" {
		return storage.ErrInvalidInput
	}

	createdAt := a.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO assets (
			id, symbol, name, chain, address,
			market_cap, volume_24h, price_usd, price_change_24h,
			liquidity_usd, holder_count, risk_level, urls, source,
			launched_at, posted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.Symbol,
		a.Name,
		string(a.Chain),
		a.Address,
		a.MarketCap,
		a.Volume24h,
		a.PriceUSD,
		a.PriceChange24h,
		a.LiquidityUSD,
		a.HolderCount,
		a.RiskLevel,
		a.URLs,
		a.Source,
		a.LaunchedAt,
		a.Posted,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByAddress retrieves an asset by its dedup key. The address match is
// case-insensitive. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByAddress(ctx context.Context, chain domain.Chain, address string) (*domain.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE chain = $1 AND LOWER(address) = LOWER($2)
	`

	row := s.pool.QueryRow(ctx, query, string(chain), address)
	a, err := scanAsset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by address: %w", err)
	}
	return a, nil
}

// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	a, err := scanAsset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return a, nil
}

// ListRecent retrieves up to limit assets, most recently launched first.
// A non-positive limit returns everything.
func (s *AssetStore) ListRecent(ctx context.Context, limit int) ([]*domain.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		ORDER BY launched_at DESC, id ASC
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
		return nil, fmt.Errorf("list recent assets: %w", err)
	}
	defer rows.Close()

	return scanAssets(rows)
}

// MarkPosted sets the primary-destination convenience flag.
func (s *AssetStore) MarkPosted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE assets SET posted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark asset posted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanAsset scans a single row into an Asset.
func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	var chainStr string

	err := row.Scan(
		&a.ID,
		&a.Symbol,
		&a.Name,
		&chainStr,
		&a.Address,
		&a.MarketCap,
		&a.Volume24h,
		&a.PriceUSD,
		&a.PriceChange24h,
		&a.LiquidityUSD,
		&a.HolderCount,
		&a.RiskLevel,
		&a.URLs,
		&a.Source,
		&a.LaunchedAt,
		&a.Posted,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Chain = domain.Chain(chainStr)
	return &a, nil
}

// scanAssets scans multiple rows into a slice of Asset.
func scanAssets(rows pgx.Rows) ([]*domain.Asset, error) {
	var assets []*domain.Asset

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}
