package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"launch-radar/internal/discovery"
	"launch-radar/internal/domain"
	"launch-radar/internal/markets"
	"launch-radar/internal/publish"
	"launch-radar/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeScanner struct {
	assets []*domain.Asset
	err    error
	calls  int
}

func (s *fakeScanner) Scan(_ context.Context) ([]*domain.Asset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.assets, nil
}

type fakeMarkets struct {
	pairs       map[string][]markets.Pair
	profiles    []markets.TokenProfile
	profilesErr error
}

func (m *fakeMarkets) PairsByToken(_ context.Context, _ domain.Chain, address string) ([]markets.Pair, error) {
	pairs, ok := m.pairs[address]
	if !ok {
		return nil, errors.New("pair lookup refused")
	}
	return pairs, nil
}

func (m *fakeMarkets) LatestProfiles(_ context.Context) ([]markets.TokenProfile, error) {
	if m.profilesErr != nil {
		return nil, m.profilesErr
	}
	return m.profiles, nil
}

type fakeNewsFeed struct {
	general    []*domain.NewsItem
	generalErr error
	chain      map[domain.Chain][]*domain.NewsItem
	chainErr   error
}

func (f *fakeNewsFeed) General(_ context.Context, _ int) ([]*domain.NewsItem, error) {
	if f.generalErr != nil {
		return nil, f.generalErr
	}
	return f.general, nil
}

func (f *fakeNewsFeed) ForChain(_ context.Context, chain domain.Chain, _ []string, _ int) ([]*domain.NewsItem, error) {
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return f.chain[chain], nil
}

type fakeHeadlines struct {
	items   []*domain.NewsItem
	dropped uint64
}

func (h *fakeHeadlines) Drain() []*domain.NewsItem {
	items := h.items
	h.items = nil
	return items
}

func (h *fakeHeadlines) Stats() (int, uint64) {
	return len(h.items), h.dropped
}

type fakeAnnotator struct{ label string }

func (a *fakeAnnotator) Enabled() bool { return true }

func (a *fakeAnnotator) Annotate(_ context.Context, items []*domain.NewsItem) {
	for _, item := range items {
		item.Sentiment = a.label
	}
}

type fakePublisher struct {
	launches  publish.Report
	launchErr error
	news      publish.Report
	newsErr   error
}

func (p *fakePublisher) PublishLaunches(_ context.Context) (publish.Report, error) {
	return p.launches, p.launchErr
}

func (p *fakePublisher) PublishNews(_ context.Context) (publish.Report, error) {
	return p.news, p.newsErr
}

func newTestStores() (*memory.AssetStore, *memory.NewsStore, *discovery.Reconciler) {
	assets := memory.NewAssetStore()
	news := memory.NewNewsStore()
	return assets, news, discovery.NewReconciler(assets, news, quietLogger())
}

func detectedAsset(symbol, address string, launchedAt int64) *domain.Asset {
	return &domain.Asset{
		Symbol:     symbol,
		Name:       symbol + " Token",
		Chain:      domain.ChainBase,
		Address:    address,
		Source:     "factory",
		LaunchedAt: launchedAt,
	}
}

func basePair(symbol, address string, liquidityUSD float64) markets.Pair {
	p := markets.Pair{
		ChainID:     "base",
		DexID:       "uniswap",
		URL:         "https://dexscreener.com/base/" + address,
		PairAddress: "pool-" + address,
		BaseToken: markets.TokenInfo{
			Address: address,
			Name:    symbol + " Token",
			Symbol:  symbol,
		},
		PriceUSD:      "0.0125",
		MarketCap:     250000,
		PairCreatedAt: time.Now().Add(-10 * time.Minute).UnixMilli(),
	}
	p.Volume.H24 = 42000
	p.Liquidity.USD = liquidityUSD
	return p
}

func headline(title string, publishedAt int64) *domain.NewsItem {
	return &domain.NewsItem{
		Title:       title,
		Chain:       domain.ChainGeneral,
		Source:      "test-feed",
		PublishedAt: publishedAt,
	}
}

func TestChainScan_SavesDetections(t *testing.T) {
	assets, _, rec := newTestStores()
	scanner := &fakeScanner{assets: []*domain.Asset{
		detectedAsset("AAA", "0xaaa", time.Now().UnixMilli()),
		detectedAsset("BBB", "0xbbb", time.Now().UnixMilli()),
	}}
	r := New(Options{EVMScanner: scanner, Reconciler: rec, Logger: quietLogger()})

	sum, err := r.ChainScan(context.Background(), domain.ChainBase)
	if err != nil {
		t.Fatalf("ChainScan: %v", err)
	}
	if sum.Processed != 2 || sum.Saved != 2 {
		t.Errorf("expected 2 processed and saved, got %+v", sum)
	}

	stored, err := assets.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored assets, got %d", len(stored))
	}

	// Same batch again: everything is a dup now.
	sum, err = r.ChainScan(context.Background(), domain.ChainBase)
	if err != nil {
		t.Fatalf("second ChainScan: %v", err)
	}
	if sum.Saved != 0 || sum.Skipped != 2 {
		t.Errorf("rerun should skip both, got %+v", sum)
	}
}

func TestChainScan_RoutesSuiToMoveScanner(t *testing.T) {
	_, _, rec := newTestStores()
	evm := &fakeScanner{}
	move := &fakeScanner{assets: []*domain.Asset{{
		Symbol:  "CETUS",
		Chain:   domain.ChainSui,
		Address: "0x2::cetus::CETUS",
		Source:  "move-event",
	}}}
	r := New(Options{EVMScanner: evm, MoveScanner: move, Reconciler: rec, Logger: quietLogger()})

	sum, err := r.ChainScan(context.Background(), domain.ChainSui)
	if err != nil {
		t.Fatalf("ChainScan: %v", err)
	}
	if sum.Saved != 1 {
		t.Errorf("expected the sui asset saved, got %+v", sum)
	}
	if evm.calls != 0 {
		t.Errorf("evm scanner should not run for sui, ran %d times", evm.calls)
	}
	if move.calls != 1 {
		t.Errorf("move scanner should run once, ran %d times", move.calls)
	}
}

func TestChainScan_EnrichmentAndSnapshots(t *testing.T) {
	assets, _, rec := newTestStores()
	scanner := &fakeScanner{assets: []*domain.Asset{
		detectedAsset("AAA", "0xaaa", time.Now().UnixMilli()),
		detectedAsset("BBB", "0xbbb", time.Now().UnixMilli()),
	}}
	market := &fakeMarkets{pairs: map[string][]markets.Pair{
		"0xaaa": {basePair("AAA", "0xaaa", 75000)},
		// 0xbbb has no pair; its lookup fails and the asset stays bare.
	}}
	snaps := memory.NewSnapshotStore()
	r := New(Options{
		EVMScanner: scanner,
		Reconciler: rec,
		Markets:    market,
		Snapshots:  snaps,
		Logger:     quietLogger(),
	})

	sum, err := r.ChainScan(context.Background(), domain.ChainBase)
	if err != nil {
		t.Fatalf("ChainScan: %v", err)
	}
	if sum.Saved != 2 {
		t.Errorf("enrichment failure must not drop an asset, got %+v", sum)
	}

	enriched, err := assets.GetByAddress(context.Background(), domain.ChainBase, "0xaaa")
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if enriched.MarketCap != 250000 {
		t.Errorf("expected market cap 250000, got %v", enriched.MarketCap)
	}
	if enriched.PriceUSD != 0.0125 {
		t.Errorf("expected price 0.0125, got %v", enriched.PriceUSD)
	}
	if enriched.LiquidityUSD == nil || *enriched.LiquidityUSD != 75000 {
		t.Errorf("expected liquidity 75000, got %v", enriched.LiquidityUSD)
	}

	bare, err := assets.GetByAddress(context.Background(), domain.ChainBase, "0xbbb")
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if bare.MarketCap != 0 {
		t.Errorf("unenriched asset should keep zero market cap, got %v", bare.MarketCap)
	}

	rows := snaps.All()
	if len(rows) != 1 {
		t.Fatalf("expected one snapshot for the one enriched asset, got %d", len(rows))
	}
	if rows[0].Address != "0xaaa" || rows[0].PriceUSD != 0.0125 {
		t.Errorf("snapshot should capture the enriched state, got %+v", rows[0])
	}
}

func TestChainScan_FreshPolicyDropsStale(t *testing.T) {
	_, _, rec := newTestStores()
	scanner := &fakeScanner{assets: []*domain.Asset{
		detectedAsset("NEW", "0xnew", time.Now().Add(-time.Minute).UnixMilli()),
		detectedAsset("OLD", "0xold", time.Now().Add(-2*time.Hour).UnixMilli()),
	}}
	r := New(Options{
		EVMScanner:  scanner,
		Reconciler:  rec,
		FreshPolicy: markets.FreshPairPolicy{MaxAge: 30 * time.Minute},
		Logger:      quietLogger(),
	})

	sum, err := r.ChainScan(context.Background(), domain.ChainBase)
	if err != nil {
		t.Fatalf("ChainScan: %v", err)
	}
	if sum.Saved != 1 {
		t.Errorf("stale launch should be filtered before reconcile, got %+v", sum)
	}
	if sum.Processed != 1 {
		t.Errorf("filtered assets never reach the reconciler, got %+v", sum)
	}
}

func TestChainScan_ScanFailureFailsCycle(t *testing.T) {
	_, _, rec := newTestStores()
	scanner := &fakeScanner{err: errors.New("rpc unreachable")}
	r := New(Options{EVMScanner: scanner, Reconciler: rec, Logger: quietLogger()})

	sum, err := r.ChainScan(context.Background(), domain.ChainBase)
	if err == nil {
		t.Fatal("a failed scan is the cycle's only operation and must error")
	}
	if sum.Processed != 0 {
		t.Errorf("expected zero counts on scan failure, got %+v", sum)
	}
}

func TestChainScan_MissingScannerIsNoop(t *testing.T) {
	_, _, rec := newTestStores()
	r := New(Options{EVMScanner: &fakeScanner{}, Reconciler: rec, Logger: quietLogger()})

	sum, err := r.ChainScan(context.Background(), domain.ChainSui)
	if err != nil {
		t.Fatalf("missing scanner should not error: %v", err)
	}
	if sum != (discovery.Summary{}) {
		t.Errorf("expected zero summary, got %+v", sum)
	}
}

func TestListingSweep_SavesTrendingListings(t *testing.T) {
	assets, _, rec := newTestStores()
	market := &fakeMarkets{
		profiles: []markets.TokenProfile{
			{ChainID: "base", TokenAddress: "0xAAA"},
			{ChainID: "base", TokenAddress: "0xccc"},
			{ChainID: "osmosis", TokenAddress: "osmo1xyz"}, // unwatched chain
		},
		pairs: map[string][]markets.Pair{
			"0xAAA": {basePair("AAA", "0xAAA", 75000)},
			"0xccc": {basePair("CCC", "0xccc", 500)}, // below the liquidity bar
		},
	}
	snaps := memory.NewSnapshotStore()
	r := New(Options{
		Reconciler:    rec,
		Markets:       market,
		ListingPolicy: markets.ListingPolicy{MinLiquidityUSD: 10000},
		Snapshots:     snaps,
		Logger:        quietLogger(),
	})

	sum, err := r.ListingSweep(context.Background())
	if err != nil {
		t.Fatalf("ListingSweep: %v", err)
	}
	if sum.Saved != 1 {
		t.Errorf("only the liquid listing should be saved, got %+v", sum)
	}

	stored, err := assets.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(stored) != 1 || stored[0].Symbol != "AAA" {
		t.Fatalf("expected only AAA stored, got %+v", stored)
	}
	if stored[0].Source != "trending" {
		t.Errorf("listing assets carry the trending source, got %q", stored[0].Source)
	}
	if stored[0].Address != "0xaaa" {
		t.Errorf("EVM addresses are stored lowercase, got %q", stored[0].Address)
	}

	// Observations are recorded for every resolved pair, filtered or not.
	if rows := snaps.All(); len(rows) != 2 {
		t.Errorf("expected snapshots for both resolved pairs, got %d", len(rows))
	}
}

func TestListingSweep_ProfileFetchFailureFailsCycle(t *testing.T) {
	_, _, rec := newTestStores()
	market := &fakeMarkets{profilesErr: errors.New("upstream 500")}
	r := New(Options{Reconciler: rec, Markets: market, Logger: quietLogger()})

	if _, err := r.ListingSweep(context.Background()); err == nil {
		t.Fatal("profile fetch is the cycle's only source and its failure must error")
	}
}

func TestNewsScan_MergesDedupesAndAnnotates(t *testing.T) {
	_, newsStore, rec := newTestStores()
	now := time.Now().UnixMilli()
	feed := &fakeNewsFeed{
		general: []*domain.NewsItem{
			headline("Bitcoin climbs past 100k", now),
			headline("Exchange outage resolved", now-1000),
		},
		chain: map[domain.Chain][]*domain.NewsItem{
			// Duplicate title differing only in case folds into one item.
			domain.ChainBase: {headline("bitcoin climbs PAST 100k", now-500)},
		},
	}
	stream := &fakeHeadlines{items: []*domain.NewsItem{
		headline("Sui validator set expands", now-2000),
	}}
	r := New(Options{
		Reconciler: rec,
		News:       feed,
		NewsChains: []domain.Chain{domain.ChainBase},
		NewsLimit:  10,
		Headlines:  stream,
		Annotator:  &fakeAnnotator{label: "bullish"},
		Logger:     quietLogger(),
	})

	sum, err := r.NewsScan(context.Background())
	if err != nil {
		t.Fatalf("NewsScan: %v", err)
	}
	if sum.Saved != 3 {
		t.Errorf("four fetched headlines dedupe to three, got %+v", sum)
	}

	item, err := newsStore.GetByTitleKey(context.Background(), domain.NormalizeTitle("Bitcoin climbs past 100k"))
	if err != nil {
		t.Fatalf("GetByTitleKey: %v", err)
	}
	if item.Sentiment != "bullish" {
		t.Errorf("annotated sentiment should persist, got %q", item.Sentiment)
	}

	if stream.items != nil {
		t.Error("livefeed buffer should be drained")
	}
}

func TestNewsScan_PartialFeedFailureStillSaves(t *testing.T) {
	_, _, rec := newTestStores()
	feed := &fakeNewsFeed{
		generalErr: errors.New("every source down"),
		chain: map[domain.Chain][]*domain.NewsItem{
			domain.ChainSui: {headline("Sui DEX volume doubles", time.Now().UnixMilli())},
		},
	}
	r := New(Options{
		Reconciler: rec,
		News:       feed,
		NewsChains: []domain.Chain{domain.ChainSui},
		Logger:     quietLogger(),
	})

	sum, err := r.NewsScan(context.Background())
	if err != nil {
		t.Fatalf("one live feed is enough to keep the cycle green: %v", err)
	}
	if sum.Saved != 1 {
		t.Errorf("the surviving feed's item should be saved, got %+v", sum)
	}
}

func TestNewsScan_AllFeedsFailedErrors(t *testing.T) {
	_, _, rec := newTestStores()
	feed := &fakeNewsFeed{
		generalErr: errors.New("general down"),
		chainErr:   errors.New("chain down"),
	}
	r := New(Options{
		Reconciler: rec,
		News:       feed,
		NewsChains: []domain.Chain{domain.ChainBase},
		Logger:     quietLogger(),
	})

	if _, err := r.NewsScan(context.Background()); err == nil {
		t.Fatal("every feed failing must fail the cycle")
	}
}

func TestNewsScan_LivefeedKeepsAllFailedCycleGreen(t *testing.T) {
	_, _, rec := newTestStores()
	feed := &fakeNewsFeed{generalErr: errors.New("general down")}
	stream := &fakeHeadlines{items: []*domain.NewsItem{
		headline("Streaming headline survives", time.Now().UnixMilli()),
	}}
	r := New(Options{
		Reconciler: rec,
		News:       feed,
		Headlines:  stream,
		Logger:     quietLogger(),
	})

	sum, err := r.NewsScan(context.Background())
	if err != nil {
		t.Fatalf("the drain sub-operation cannot fail, so the cycle stays green: %v", err)
	}
	if sum.Saved != 1 {
		t.Errorf("expected the streamed item saved, got %+v", sum)
	}
}

func TestPublishCycle_SumsBothReports(t *testing.T) {
	pub := &fakePublisher{
		launches: publish.Report{Sent: 2, Skipped: 1},
		news:     publish.Report{Sent: 1, Failed: 1},
	}
	r := New(Options{Publisher: pub, Logger: quietLogger()})

	sum, err := r.PublishCycle(context.Background())
	if err != nil {
		t.Fatalf("PublishCycle: %v", err)
	}
	want := discovery.Summary{Processed: 5, Saved: 3, Skipped: 1, Failed: 1}
	if sum != want {
		t.Errorf("expected %+v, got %+v", want, sum)
	}
}

func TestPublishCycle_OneHalfFailingIsNotFatal(t *testing.T) {
	pub := &fakePublisher{
		launchErr: errors.New("fetch unsent launches failed"),
		news:      publish.Report{Sent: 2},
	}
	r := New(Options{Publisher: pub, Logger: quietLogger()})

	sum, err := r.PublishCycle(context.Background())
	if err != nil {
		t.Fatalf("one half succeeded, the cycle must not error: %v", err)
	}
	if sum.Saved != 2 {
		t.Errorf("news sends should still be counted, got %+v", sum)
	}
}

func TestPublishCycle_BothHalvesFailingErrors(t *testing.T) {
	pub := &fakePublisher{
		launchErr: errors.New("launches failed"),
		newsErr:   errors.New("news failed"),
	}
	r := New(Options{Publisher: pub, Logger: quietLogger()})

	if _, err := r.PublishCycle(context.Background()); err == nil {
		t.Fatal("both halves failing must fail the cycle")
	}
}

func TestPublishCycle_MissingPublisherIsNoop(t *testing.T) {
	r := New(Options{Logger: quietLogger()})

	sum, err := r.PublishCycle(context.Background())
	if err != nil {
		t.Fatalf("missing publisher should not error: %v", err)
	}
	if sum != (discovery.Summary{}) {
		t.Errorf("expected zero summary, got %+v", sum)
	}
}
