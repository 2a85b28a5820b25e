package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"launch-radar/internal/domain"
	"launch-radar/internal/recordid"
	"launch-radar/internal/storage"
)

// Summary counts the outcome of one reconcile batch.
type Summary struct {
	Processed int
	Saved     int
	Skipped   int
	Failed    int
}

// Add merges two summaries.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Processed: s.Processed + o.Processed,
		Saved:     s.Saved + o.Saved,
		Skipped:   s.Skipped + o.Skipped,
		Failed:    s.Failed + o.Failed,
	}
}

// Reconciler persists discovered assets and news exactly once. The store's
// uniqueness constraint is the correctness boundary; the in-memory seen maps
// and the lookup before insert only avoid pointless writes. Safe for
// concurrent use, overlapping jobs may reconcile at the same time.
type Reconciler struct {
	assets storage.AssetStore
	news   storage.NewsStore
	log    *slog.Logger

	mu         sync.Mutex
	seenAssets map[string]bool
	seenNews   map[string]bool
}

func NewReconciler(assets storage.AssetStore, news storage.NewsStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		assets:     assets,
		news:       news,
		log:        logger.With("component", "reconciler"),
		seenAssets: make(map[string]bool),
		seenNews:   make(map[string]bool),
	}
}

// ReconcileAssets inserts new assets and skips known ones. A duplicate-key
// insert means another job persisted the asset first; that is a skip, not a
// failure. Item failures are counted and do not stop the batch; the only
// error returned is context cancellation.
func (r *Reconciler) ReconcileAssets(ctx context.Context, batch []*domain.Asset) (Summary, error) {
	var sum Summary
	for _, asset := range batch {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Processed++

		if asset.ID == "" {
			asset.ID = recordid.ForAsset(asset.Chain, asset.Address)
		}
		if r.isSeen(r.seenAssets, asset.ID) {
			sum.Skipped++
			continue
		}

		_, err := r.assets.GetByAddress(ctx, asset.Chain, asset.Address)
		switch {
		case err == nil:
			r.markSeen(r.seenAssets, asset.ID)
			sum.Skipped++
			continue
		case !errors.Is(err, storage.ErrNotFound):
			sum.Failed++
			r.log.Warn("asset lookup failed", "chain", asset.Chain, "address", asset.Address, "error", err)
			continue
		}

		if err := r.assets.Insert(ctx, asset); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				r.markSeen(r.seenAssets, asset.ID)
				sum.Skipped++
				continue
			}
			sum.Failed++
			r.log.Warn("asset insert failed", "chain", asset.Chain, "address", asset.Address, "error", err)
			continue
		}

		r.markSeen(r.seenAssets, asset.ID)
		sum.Saved++
		r.log.Info("new launch recorded",
			"chain", asset.Chain, "symbol", asset.Symbol, "address", asset.Address, "source", asset.Source)
	}
	return sum, nil
}

// ReconcileNews inserts news items keyed by normalized title.
func (r *Reconciler) ReconcileNews(ctx context.Context, batch []*domain.NewsItem) (Summary, error) {
	var sum Summary
	for _, item := range batch {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Processed++

		if item.TitleKey == "" {
			item.TitleKey = domain.NormalizeTitle(item.Title)
		}
		if item.ID == "" {
			item.ID = recordid.ForNews(item.Title)
		}
		if r.isSeen(r.seenNews, item.TitleKey) {
			sum.Skipped++
			continue
		}

		_, err := r.news.GetByTitleKey(ctx, item.TitleKey)
		switch {
		case err == nil:
			r.markSeen(r.seenNews, item.TitleKey)
			sum.Skipped++
			continue
		case !errors.Is(err, storage.ErrNotFound):
			sum.Failed++
			r.log.Warn("news lookup failed", "title_key", item.TitleKey, "error", err)
			continue
		}

		if err := r.news.Insert(ctx, item); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				r.markSeen(r.seenNews, item.TitleKey)
				sum.Skipped++
				continue
			}
			sum.Failed++
			r.log.Warn("news insert failed", "title_key", item.TitleKey, "error", err)
			continue
		}

		r.markSeen(r.seenNews, item.TitleKey)
		sum.Saved++
	}
	return sum, nil
}

// Reset clears the in-memory seen caches. Storage state is untouched, so a
// rerun after Reset rediscovers everything and skips it on insert.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seenAssets = make(map[string]bool)
	r.seenNews = make(map[string]bool)
}

func (r *Reconciler) isSeen(m map[string]bool, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[key]
}

func (r *Reconciler) markSeen(m map[string]bool, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[key] = true
}
