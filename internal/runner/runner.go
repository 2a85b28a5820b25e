// Package runner ties the discovery, markets, news and publishing
// components into scheduled cycles. Each cycle method runs one task to
// completion, logs a per-cycle id and returns the reconciliation counts.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"launch-radar/internal/discovery"
	"launch-radar/internal/domain"
	"launch-radar/internal/markets"
	"launch-radar/internal/news"
	"launch-radar/internal/observability"
	"launch-radar/internal/publish"
	"launch-radar/internal/storage"
)

// Task names used in logs and metric labels.
const (
	taskChainScan    = "chain_scan"
	taskListingSweep = "listing_sweep"
	taskNewsScan     = "news_scan"
	taskPublish      = "publish"
)

// Scanner detects recently launched assets on one network.
type Scanner interface {
	Scan(ctx context.Context) ([]*domain.Asset, error)
}

// MarketData looks up trading pairs and trending token profiles.
type MarketData interface {
	PairsByToken(ctx context.Context, chain domain.Chain, address string) ([]markets.Pair, error)
	LatestProfiles(ctx context.Context) ([]markets.TokenProfile, error)
}

// NewsFeed fetches headline batches from the aggregated REST sources.
type NewsFeed interface {
	General(ctx context.Context, limit int) ([]*domain.NewsItem, error)
	ForChain(ctx context.Context, chain domain.Chain, keywords []string, limit int) ([]*domain.NewsItem, error)
}

// Headlines hands over items buffered by the streaming feed between cycles.
type Headlines interface {
	Drain() []*domain.NewsItem
	Stats() (buffered int, dropped uint64)
}

// Annotator labels news sentiment. Annotate is best effort and keeps
// unlabeled items unlabeled on failure.
type Annotator interface {
	Enabled() bool
	Annotate(ctx context.Context, items []*domain.NewsItem)
}

// Publisher delivers unsent launches and news to the configured
// destinations.
type Publisher interface {
	PublishLaunches(ctx context.Context) (publish.Report, error)
	PublishNews(ctx context.Context) (publish.Report, error)
}

// Options configures a Runner. Components may be nil; a cycle whose
// components are missing logs a warning and returns zero counts, so a
// deployment can run scan-only or publish-only.
type Options struct {
	// EVMScanner handles ChainScan for EVM networks, MoveScanner for Sui.
	EVMScanner  Scanner
	MoveScanner Scanner

	// Reconciler persists detected assets and news with dedup counting.
	Reconciler *discovery.Reconciler

	// Markets enriches detections and drives the listing sweep.
	// FreshPolicy gates scanned launches, ListingPolicy gates trending
	// listings. A nil policy keeps everything.
	Markets       MarketData
	FreshPolicy   markets.Policy
	ListingPolicy markets.Policy

	// News components. NewsChains lists the networks to fetch dedicated
	// headlines for; NewsLimit bounds the merged batch per cycle.
	News       NewsFeed
	NewsChains []domain.Chain
	NewsLimit  int
	Headlines  Headlines
	Annotator  Annotator

	Publisher Publisher

	// Snapshots receives one market observation per successful
	// enrichment. Nil disables the time series.
	Snapshots storage.SnapshotStore

	Logger *slog.Logger
}

// Runner executes the scheduled cycles.
type Runner struct {
	evm           Scanner
	move          Scanner
	reconciler    *discovery.Reconciler
	markets       MarketData
	freshPolicy   markets.Policy
	listingPolicy markets.Policy
	news          NewsFeed
	newsChains    []domain.Chain
	newsLimit     int
	headlines     Headlines
	annotator     Annotator
	publisher     Publisher
	snapshots     storage.SnapshotStore
	log           *slog.Logger

	droppedSeen uint64
}

// New builds a Runner from options.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newsLimit := opts.NewsLimit
	if newsLimit <= 0 {
		newsLimit = news.DefaultLimit
	}
	return &Runner{
		evm:           opts.EVMScanner,
		move:          opts.MoveScanner,
		reconciler:    opts.Reconciler,
		markets:       opts.Markets,
		freshPolicy:   opts.FreshPolicy,
		listingPolicy: opts.ListingPolicy,
		news:          opts.News,
		newsChains:    opts.NewsChains,
		newsLimit:     newsLimit,
		headlines:     opts.Headlines,
		annotator:     opts.Annotator,
		publisher:     opts.Publisher,
		snapshots:     opts.Snapshots,
		log:           logger,
	}
}

// ChainScan detects fresh launches on one network, enriches them with
// market data, filters and persists them. Enrichment failures degrade to
// unenriched assets; only a failed scan fails the cycle.
func (r *Runner) ChainScan(ctx context.Context, chain domain.Chain) (discovery.Summary, error) {
	start := time.Now()
	log := r.log.With("cycle", uuid.NewString(), "task", taskChainScan, "chain", chain)

	scanner := r.scannerFor(chain)
	if scanner == nil || r.reconciler == nil {
		log.Warn("chain scan skipped, scanner or reconciler not configured")
		return discovery.Summary{}, nil
	}

	assets, err := scanner.Scan(ctx)
	if err != nil {
		observability.RecordScanError(taskChainScan)
		observability.RecordCycle(taskChainScan, "error", time.Since(start).Seconds())
		return discovery.Summary{}, fmt.Errorf("scan %s: %w", chain, err)
	}
	for source, count := range countBySource(assets) {
		observability.RecordAssetsDetected(source, count)
	}

	now := time.Now().UnixMilli()
	snaps := r.enrichAssets(ctx, log, assets, now)

	kept := assets
	if r.freshPolicy != nil {
		kept = markets.Filter(assets, r.freshPolicy, now)
		if dropped := len(assets) - len(kept); dropped > 0 {
			log.Debug("policy dropped assets", "dropped", dropped)
		}
	}

	sum, err := r.reconciler.ReconcileAssets(ctx, kept)
	if err != nil {
		observability.RecordCycle(taskChainScan, "error", time.Since(start).Seconds())
		return sum, fmt.Errorf("reconcile assets: %w", err)
	}
	observability.RecordAssetsSaved(string(chain), sum.Saved)
	observability.RecordAssetsSkipped(sum.Skipped)

	r.appendSnapshots(ctx, log, snaps)

	log.Info("chain scan complete",
		"processed", sum.Processed, "saved", sum.Saved,
		"skipped", sum.Skipped, "failed", sum.Failed)
	observability.RecordCycle(taskChainScan, "ok", time.Since(start).Seconds())
	observability.MarkCycleSuccess(taskChainScan, time.Now().Unix())
	return sum, nil
}

// ListingSweep pulls trending token profiles from the markets API,
// resolves each to its best pair and persists the ones that clear the
// listing policy.
func (r *Runner) ListingSweep(ctx context.Context) (discovery.Summary, error) {
	start := time.Now()
	log := r.log.With("cycle", uuid.NewString(), "task", taskListingSweep)

	if r.markets == nil || r.reconciler == nil {
		log.Warn("listing sweep skipped, markets client or reconciler not configured")
		return discovery.Summary{}, nil
	}

	profiles, err := r.latestProfiles(ctx)
	if err != nil {
		observability.RecordScanError(taskListingSweep)
		observability.RecordCycle(taskListingSweep, "error", time.Since(start).Seconds())
		return discovery.Summary{}, fmt.Errorf("fetch token profiles: %w", err)
	}

	now := time.Now().UnixMilli()
	var assets []*domain.Asset
	var snaps []*domain.MarketSnapshot
	for _, profile := range profiles {
		chain := domain.Chain(profile.ChainID)
		if !chain.IsValid() || chain == domain.ChainGeneral {
			continue
		}
		pairs, err := r.pairsByToken(ctx, chain, profile.TokenAddress)
		if err != nil {
			log.Debug("pair lookup failed", "chain", chain, "address", profile.TokenAddress, "error", err)
			continue
		}
		best := markets.BestPair(pairs)
		if best == nil {
			continue
		}
		asset := markets.AssetFromPair(best, "trending")
		snap := domain.SnapshotFromAsset(asset, now)
		snaps = append(snaps, &snap)
		assets = append(assets, asset)
	}
	observability.RecordAssetsDetected("trending", len(assets))

	kept := assets
	if r.listingPolicy != nil {
		kept = markets.Filter(assets, r.listingPolicy, now)
	}

	// Reconcile per chain so saves land on the chain-labeled counter.
	byChain := make(map[domain.Chain][]*domain.Asset)
	var chainOrder []domain.Chain
	for _, asset := range kept {
		if _, ok := byChain[asset.Chain]; !ok {
			chainOrder = append(chainOrder, asset.Chain)
		}
		byChain[asset.Chain] = append(byChain[asset.Chain], asset)
	}

	var sum discovery.Summary
	for _, chain := range chainOrder {
		s, err := r.reconciler.ReconcileAssets(ctx, byChain[chain])
		sum = sum.Add(s)
		if err != nil {
			observability.RecordCycle(taskListingSweep, "error", time.Since(start).Seconds())
			return sum, fmt.Errorf("reconcile listings: %w", err)
		}
		observability.RecordAssetsSaved(string(chain), s.Saved)
	}
	observability.RecordAssetsSkipped(sum.Skipped)

	r.appendSnapshots(ctx, log, snaps)

	log.Info("listing sweep complete",
		"profiles", len(profiles), "processed", sum.Processed,
		"saved", sum.Saved, "skipped", sum.Skipped, "failed", sum.Failed)
	observability.RecordCycle(taskListingSweep, "ok", time.Since(start).Seconds())
	observability.MarkCycleSuccess(taskListingSweep, time.Now().Unix())
	return sum, nil
}

// NewsScan gathers headlines from every configured feed, merges and
// deduplicates them, annotates sentiment and persists the batch. The
// cycle errors only when every feed failed.
func (r *Runner) NewsScan(ctx context.Context) (discovery.Summary, error) {
	start := time.Now()
	log := r.log.With("cycle", uuid.NewString(), "task", taskNewsScan)

	if r.news == nil || r.reconciler == nil {
		log.Warn("news scan skipped, aggregator or reconciler not configured")
		return discovery.Summary{}, nil
	}

	var batches [][]*domain.NewsItem
	var errs []error
	subOps := 0

	subOps++
	general, err := r.news.General(ctx, r.newsLimit)
	if err != nil {
		log.Warn("general news fetch failed", "error", err)
		errs = append(errs, fmt.Errorf("general news: %w", err))
	} else {
		observability.RecordNewsFetched("general", len(general))
		batches = append(batches, general)
	}

	for _, chain := range r.newsChains {
		subOps++
		items, err := r.news.ForChain(ctx, chain, chainKeywords(chain), r.newsLimit)
		if err != nil {
			log.Warn("chain news fetch failed", "chain", chain, "error", err)
			errs = append(errs, fmt.Errorf("%s news: %w", chain, err))
			continue
		}
		observability.RecordNewsFetched(string(chain), len(items))
		batches = append(batches, items)
	}

	if r.headlines != nil {
		subOps++
		streamed := r.headlines.Drain()
		if len(streamed) > 0 {
			observability.RecordNewsFetched("livefeed", len(streamed))
			batches = append(batches, streamed)
		}
		buffered, dropped := r.headlines.Stats()
		observability.UpdateLivefeedBuffer(buffered)
		if dropped > r.droppedSeen {
			observability.RecordLivefeedDropped(int(dropped - r.droppedSeen))
			r.droppedSeen = dropped
		}
	}

	if len(errs) == subOps && subOps > 0 {
		observability.RecordCycle(taskNewsScan, "error", time.Since(start).Seconds())
		return discovery.Summary{}, errors.Join(errs...)
	}

	merged := news.Merge(r.newsLimit, batches...)

	if r.annotator != nil && r.annotator.Enabled() {
		r.annotator.Annotate(ctx, merged)
		for _, item := range merged {
			if item.Sentiment != "" {
				observability.RecordSentiment(item.Sentiment)
			}
		}
	}

	sum, err := r.reconciler.ReconcileNews(ctx, merged)
	if err != nil {
		observability.RecordCycle(taskNewsScan, "error", time.Since(start).Seconds())
		return sum, fmt.Errorf("reconcile news: %w", err)
	}
	observability.RecordNewsSaved(sum.Saved)
	observability.RecordNewsSkipped(sum.Skipped)

	log.Info("news scan complete",
		"feeds", subOps, "failed_feeds", len(errs), "merged", len(merged),
		"saved", sum.Saved, "skipped", sum.Skipped)
	observability.RecordCycle(taskNewsScan, "ok", time.Since(start).Seconds())
	observability.MarkCycleSuccess(taskNewsScan, time.Now().Unix())
	return sum, nil
}

// PublishCycle delivers unsent launches and news. It errors only when
// both halves failed outright.
func (r *Runner) PublishCycle(ctx context.Context) (discovery.Summary, error) {
	start := time.Now()
	log := r.log.With("cycle", uuid.NewString(), "task", taskPublish)

	if r.publisher == nil {
		log.Warn("publish skipped, publisher not configured")
		return discovery.Summary{}, nil
	}

	var errs []error
	launches, err := r.publisher.PublishLaunches(ctx)
	if err != nil {
		log.Warn("publish launches failed", "error", err)
		errs = append(errs, fmt.Errorf("publish launches: %w", err))
	}
	newsReport, err := r.publisher.PublishNews(ctx)
	if err != nil {
		log.Warn("publish news failed", "error", err)
		errs = append(errs, fmt.Errorf("publish news: %w", err))
	}

	total := launches.Add(newsReport)
	sum := discovery.Summary{
		Processed: total.Sent + total.Skipped + total.Failed,
		Saved:     total.Sent,
		Skipped:   total.Skipped,
		Failed:    total.Failed,
	}

	if len(errs) == 2 {
		observability.RecordCycle(taskPublish, "error", time.Since(start).Seconds())
		return sum, errors.Join(errs...)
	}

	log.Info("publish complete",
		"sent", total.Sent, "skipped", total.Skipped, "failed", total.Failed)
	observability.RecordCycle(taskPublish, "ok", time.Since(start).Seconds())
	observability.MarkCycleSuccess(taskPublish, time.Now().Unix())
	return sum, nil
}

// pairsByToken and latestProfiles time the upstream market API; transport
// code stays free of metric calls.
func (r *Runner) pairsByToken(ctx context.Context, chain domain.Chain, address string) ([]markets.Pair, error) {
	start := time.Now()
	pairs, err := r.markets.PairsByToken(ctx, chain, address)
	observability.RecordAPILatency("markets", time.Since(start).Seconds())
	return pairs, err
}

func (r *Runner) latestProfiles(ctx context.Context) ([]markets.TokenProfile, error) {
	start := time.Now()
	profiles, err := r.markets.LatestProfiles(ctx)
	observability.RecordAPILatency("markets", time.Since(start).Seconds())
	return profiles, err
}

func (r *Runner) scannerFor(chain domain.Chain) Scanner {
	switch {
	case chain == domain.ChainSui:
		return r.move
	case chain.IsEVM():
		return r.evm
	default:
		return nil
	}
}

// enrichAssets attaches market data to each asset in place and returns
// one snapshot per successful enrichment. Assets whose pair lookup
// fails stay unenriched.
func (r *Runner) enrichAssets(ctx context.Context, log *slog.Logger, assets []*domain.Asset, now int64) []*domain.MarketSnapshot {
	if r.markets == nil {
		return nil
	}
	var snaps []*domain.MarketSnapshot
	for _, asset := range assets {
		pairs, err := r.pairsByToken(ctx, asset.Chain, asset.Address)
		if err != nil {
			log.Debug("enrichment failed", "address", asset.Address, "error", err)
			continue
		}
		best := markets.BestPair(pairs)
		if best == nil {
			continue
		}
		markets.Enrich(asset, best)
		snap := domain.SnapshotFromAsset(asset, now)
		snaps = append(snaps, &snap)
	}
	return snaps
}

// appendSnapshots records market observations. Snapshot storage is an
// analytics side channel; a failed append never fails the cycle.
func (r *Runner) appendSnapshots(ctx context.Context, log *slog.Logger, snaps []*domain.MarketSnapshot) {
	if r.snapshots == nil || len(snaps) == 0 {
		return
	}
	if err := r.snapshots.InsertBatch(ctx, snaps); err != nil {
		log.Warn("snapshot append failed", "count", len(snaps), "error", err)
		return
	}
	observability.RecordSnapshots(len(snaps))
}

func countBySource(assets []*domain.Asset) map[string]int {
	counts := make(map[string]int, 2)
	for _, a := range assets {
		source := a.Source
		if source == "" {
			source = "unknown"
		}
		counts[source]++
	}
	return counts
}

// chainKeywords maps a network to the tickers its dedicated news search
// should use.
func chainKeywords(chain domain.Chain) []string {
	switch chain {
	case domain.ChainSui:
		return []string{"SUI"}
	case domain.ChainBase:
		return []string{"BASE", "ETH"}
	case domain.ChainEthereum:
		return []string{"ETH"}
	case domain.ChainBSC:
		return []string{"BNB"}
	default:
		return nil
	}
}
