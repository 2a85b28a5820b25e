package domain

import "strings"

// NewsItem represents a discovered news article.
// Corresponds to news table in PostgreSQL.
//
// Uniqueness is TitleKey, not ID: independent sources assign unrelated
// identifiers to the same story, so the normalized title is the dedup key.
type NewsItem struct {
	ID          string   // deterministic hash, see recordid
	Title       string   // original headline
	TitleKey    string   // NormalizeTitle(Title), the dedup key
	Description string   // summary or lead, may be empty
	URL         string   // canonical article URL
	Symbol      string   // associated coin symbol, may be empty
	Chain       Chain    // network tag, ChainGeneral for market-wide news
	Source      string   // feed name
	Sentiment   string   // optional: bullish|bearish|neutral
	Tags        []string // optional classification tags
	PublishedAt int64    // Unix timestamp in milliseconds
	Posted      bool     // primary destination convenience flag
	CreatedAt   int64    // record creation timestamp (ms)
}

// NormalizeTitle lower-cases, trims, and collapses inner whitespace so that
// the same headline from different feeds produces the same key.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
