package memory

import (
	"context"
	"errors"
	"testing"

	"launch-radar/internal/domain"
	"launch-radar/internal/storage"
)

func testSnapshot(assetID string, observedAt int64) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		AssetID:      assetID,
		Chain:        domain.ChainBase,
		Address:      "0xabc",
		PriceUSD:     0.0125,
		MarketCap:    250000,
		Volume24h:    42000,
		LiquidityUSD: 75000,
		ObservedAt:   observedAt,
	}
}

func TestSnapshotStore_InsertBatchAppends(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	batch := []*domain.MarketSnapshot{
		testSnapshot("asset-1", 1000),
		testSnapshot("asset-1", 2000),
	}
	if err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	// Identical rows append; nothing deduplicates the series
	if err := store.InsertBatch(ctx, batch[:1]); err != nil {
		t.Fatalf("Second InsertBatch failed: %v", err)
	}

	rows := store.All()
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[1].ObservedAt != 2000 {
		t.Errorf("Expected insertion order preserved, got ObservedAt=%d", rows[1].ObservedAt)
	}
}

func TestSnapshotStore_NilRowRejected(t *testing.T) {
	store := NewSnapshotStore()

	err := store.InsertBatch(context.Background(), []*domain.MarketSnapshot{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSnapshotStore_CopiesRows(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	original := testSnapshot("asset-1", 1000)
	if err := store.InsertBatch(ctx, []*domain.MarketSnapshot{original}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	original.PriceUSD = 999
	if got := store.All()[0].PriceUSD; got != 0.0125 {
		t.Errorf("Stored row shares memory with caller, PriceUSD=%v", got)
	}

	store.All()[0].PriceUSD = 777
	if got := store.All()[0].PriceUSD; got != 0.0125 {
		t.Errorf("Returned row shares memory with store, PriceUSD=%v", got)
	}
}
