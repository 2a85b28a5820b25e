package domain

// MarketSnapshot is one observation of an asset's market state, taken each
// time the markets client enriches a record. Corresponds to
// market_snapshots table in ClickHouse (append-only).
type MarketSnapshot struct {
	AssetID      string
	Chain        Chain
	Address      string
	PriceUSD     float64
	MarketCap    float64
	Volume24h    float64
	LiquidityUSD float64
	HolderCount  int
	ObservedAt   int64 // Unix timestamp in milliseconds
}

// SnapshotFromAsset captures an asset's current market state.
func SnapshotFromAsset(a *Asset, observedAt int64) MarketSnapshot {
	s := MarketSnapshot{
		AssetID:    a.ID,
		Chain:      a.Chain,
		Address:    a.Address,
		PriceUSD:   a.PriceUSD,
		MarketCap:  a.MarketCap,
		Volume24h:  a.Volume24h,
		ObservedAt: observedAt,
	}
	if a.LiquidityUSD != nil {
		s.LiquidityUSD = *a.LiquidityUSD
	}
	if a.HolderCount != nil {
		s.HolderCount = *a.HolderCount
	}
	return s
}
