package domain

// Asset represents a detected tradable asset (a freshly launched token or
// pool). Corresponds to assets table in PostgreSQL.
//
// Uniqueness is (Chain, Address); the ID is a deterministic content hash
// used as the primary key and for cross-store references.
type Asset struct {
	ID             string   // deterministic hash, see recordid
	Symbol         string   // ticker symbol
	Name           string   // display name
	Chain          Chain    // network tag
	Address        string   // contract or pool address, lower-cased for EVM
	MarketCap      float64  // USD, zero when unknown
	Volume24h      float64  // USD, zero when unknown
	PriceUSD       float64  // zero when unknown
	PriceChange24h float64  // percent
	LiquidityUSD   *float64 // nullable
	HolderCount    *int     // nullable
	RiskLevel      string   // optional annotation, empty when unset
	URLs           []string // platform/social links
	Source         string   // detecting strategy or feed name
	LaunchedAt     int64    // Unix timestamp in milliseconds
	Posted         bool     // primary destination convenience flag
	CreatedAt      int64    // record creation timestamp (ms)
}
