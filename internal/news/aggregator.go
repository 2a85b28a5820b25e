package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"launch-radar/internal/domain"
)

// DefaultLimit bounds a fetched batch when the caller passes no limit.
const DefaultLimit = 25

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	// Primary is tried first for the general feed.
	Primary Source
	// Fallbacks are tried in order when the primary fails or comes back
	// empty.
	Fallbacks []Source
	// ChainSources are all consulted in parallel for chain-scoped feeds.
	ChainSources []Source
	Logger       *slog.Logger
}

// Aggregator merges provider feeds into one headline stream. The general
// feed walks a primary-then-fallbacks chain; chain feeds fan out to every
// chain source at once and tolerate partial failure.
type Aggregator struct {
	primary      Source
	fallbacks    []Source
	chainSources []Source
	log          *slog.Logger
}

func NewAggregator(opts AggregatorOptions) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		primary:      opts.Primary,
		fallbacks:    opts.Fallbacks,
		chainSources: opts.ChainSources,
		log:          logger.With("component", "news_aggregator"),
	}
}

// General returns the market-wide feed: the primary source's answer, or the
// first fallback that yields at least one item. An empty answer from every
// source is an empty result, not an error; the error case is every source
// failing.
func (a *Aggregator) General(ctx context.Context, limit int) ([]*domain.NewsItem, error) {
	sources := make([]Source, 0, 1+len(a.fallbacks))
	if a.primary != nil {
		sources = append(sources, a.primary)
	}
	sources = append(sources, a.fallbacks...)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no news sources configured")
	}

	q := Query{Chain: domain.ChainGeneral}
	var (
		errs     []error
		answered bool
	)
	for i, src := range sources {
		items, err := src.Fetch(ctx, q, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			a.log.Warn("news source failed, trying next", "source", src.Name(), "error", err)
			continue
		}
		answered = true
		if len(items) > 0 {
			if i > 0 {
				a.log.Info("general feed served by fallback", "source", src.Name())
			}
			return finishBatch(items, limit), nil
		}
	}

	if !answered {
		return nil, fmt.Errorf("all %d news sources failed: %w", len(sources), errors.Join(errs...))
	}
	return nil, nil
}

// ForChain returns the feed for one chain. Every chain source is queried
// concurrently; any source's answer is kept and the call fails only when
// all of them failed.
func (a *Aggregator) ForChain(ctx context.Context, chain domain.Chain, keywords []string, limit int) ([]*domain.NewsItem, error) {
	if len(a.chainSources) == 0 {
		return nil, fmt.Errorf("no chain news sources configured")
	}

	q := Query{Chain: chain, Keywords: keywords}
	results := make([][]*domain.NewsItem, len(a.chainSources))
	errs := make([]error, len(a.chainSources))

	var wg sync.WaitGroup
	for i, src := range a.chainSources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i], errs[i] = src.Fetch(ctx, q, limit)
		}(i, src)
	}
	wg.Wait()

	var merged []*domain.NewsItem
	var failures []error
	for i, src := range a.chainSources {
		if errs[i] != nil {
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), errs[i]))
			a.log.Warn("chain news source failed", "chain", chain, "source", src.Name(), "error", errs[i])
			continue
		}
		merged = append(merged, results[i]...)
	}
	if len(failures) == len(a.chainSources) {
		return nil, fmt.Errorf("chain %s: all %d news sources failed: %w",
			chain, len(failures), errors.Join(failures...))
	}
	return finishBatch(merged, limit), nil
}

// finishBatch dedups parallel sources reporting the same story, orders
// newest first, and bounds the result.
func finishBatch(items []*domain.NewsItem, limit int) []*domain.NewsItem {
	seen := make(map[string]bool, len(items))
	out := make([]*domain.NewsItem, 0, len(items))
	for _, item := range items {
		key := item.TitleKey
		if key == "" {
			key = domain.NormalizeTitle(item.Title)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt > out[j].PublishedAt
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Merge combines batches from independent feeds into one newest-first,
// deduplicated list. A non-positive limit keeps everything.
func Merge(limit int, batches ...[]*domain.NewsItem) []*domain.NewsItem {
	var all []*domain.NewsItem
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return finishBatch(all, limit)
}
