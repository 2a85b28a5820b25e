package clickhouse

import (
	"context"
	"fmt"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBatch appends observations. The series is append-only; repeated
// observations of the same asset are expected, so no uniqueness is enforced.
func (s *SnapshotStore) InsertBatch(ctx context.Context, snapshots []*domain.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_snapshots (
			asset_id, chain, address, price_usd, market_cap,
			volume_24h, liquidity_usd, holder_count, observed_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.AssetID, string(snap.Chain), snap.Address,
			snap.PriceUSD, snap.MarketCap, snap.Volume24h, snap.LiquidityUSD,
			uint32(snap.HolderCount), uint64(snap.ObservedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListByAsset retrieves observations for one asset ordered oldest first.
// A positive limit bounds the row count.
func (s *SnapshotStore) ListByAsset(ctx context.Context, assetID string, limit int) ([]*domain.MarketSnapshot, error) {
	query := `
		SELECT asset_id, chain, address, price_usd, market_cap,
		       volume_24h, liquidity_usd, holder_count, observed_at_ms
		FROM market_snapshots
		WHERE asset_id = ?
		ORDER BY observed_at_ms ASC
	`
	args := []any{assetID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows chRows) ([]*domain.MarketSnapshot, error) {
	var snapshots []*domain.MarketSnapshot

	for rows.Next() {
		var (
			snap         domain.MarketSnapshot
			chainStr     string
			holderCount  uint32
			observedAtMs uint64
		)
		err := rows.Scan(
			&snap.AssetID, &chainStr, &snap.Address,
			&snap.PriceUSD, &snap.MarketCap, &snap.Volume24h, &snap.LiquidityUSD,
			&holderCount, &observedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Chain = domain.Chain(chainStr)
		snap.HolderCount = int(holderCount)
		snap.ObservedAt = int64(observedAtMs)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
