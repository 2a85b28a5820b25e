// Package news aggregates market headlines from several providers with a
// primary-plus-fallbacks policy for the general feed and always-parallel
// sources for chain-scoped feeds.
package news

import (
	"context"
	"errors"

	"launch-radar/internal/domain"
)

// ErrNotConfigured marks a source that is missing its credentials. The
// aggregator treats it like any other source failure and moves on.
var ErrNotConfigured = errors.New("news source not configured")

// Query scopes one fetch. Chain is ChainGeneral for the market-wide feed;
// chain-scoped queries carry the provider search terms for that chain.
type Query struct {
	Chain    domain.Chain
	Keywords []string
}

// Source fetches headlines from one provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query, limit int) ([]*domain.NewsItem, error)
}
