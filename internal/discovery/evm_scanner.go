package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"launch-radar/internal/cache"
	"launch-radar/internal/domain"
	"launch-radar/internal/evm"
	"launch-radar/internal/recordid"
)

// Default scan geometry.
const (
	DefaultBlockInterval  = 2 * time.Second
	DefaultScanHorizon    = 5 * time.Minute
	DefaultFallbackWindow = 40 // blocks scanned by the mint-transfer heuristic
)

// Strategy names, also recorded as Asset.Source.
const (
	StrategyPairCreated  = "pair-created"
	StrategyLiquidity    = "liquidity-added"
	StrategyMintTransfer = "mint-transfer"
	StrategyMoveEvents   = "move-events"
)

// ChainClient is the chain RPC surface the scanner needs.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Logs(ctx context.Context, filter evm.Filter) ([]evm.Log, error)
	BlockByNumber(ctx context.Context, number uint64) (*evm.Block, error)
	PairTokens(ctx context.Context, pair string) (token0, token1 string, err error)
	TokenSymbol(ctx context.Context, token string) (string, error)
	TokenName(ctx context.Context, token string) (string, error)
}

// Factory is a pool factory contract watched by the pair-created strategy.
type Factory struct {
	Address string
	Label   string
}

// EVMScannerOptions configures an EVMScanner.
type EVMScannerOptions struct {
	Chain          domain.Chain
	Client         ChainClient
	BlockInterval  time.Duration     // the chain's known block time
	ScanHorizon    time.Duration     // how far back one scan window reaches
	FallbackWindow uint64            // sub-window for the mint-transfer heuristic
	Factories      []Factory         // empty disables the pair-created strategy
	QuoteTokens    map[string]string // lower-cased address -> symbol, excluded as "the traded token"
	CacheSize      int               // block timestamp cache capacity
	Logger         *slog.Logger
}

// EVMScanner finds freshly launched pools and tokens by scanning a recent
// block window with several independent log strategies.
type EVMScanner struct {
	chain          domain.Chain
	client         ChainClient
	blockInterval  time.Duration
	horizon        time.Duration
	fallbackWindow uint64
	factories      []Factory
	quoteTokens    map[string]string
	blocks         *cache.Cache[uint64, int64] // block number -> timestamp ms
	log            *slog.Logger

	nowFn func() time.Time // injectable for tests
}

// NewEVMScanner creates a scanner. A missing factory list disables the
// pair-created strategy for every scan; that is logged once here.
func NewEVMScanner(opts EVMScannerOptions) *EVMScanner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "evm_scanner", "chain", opts.Chain)

	blockInterval := opts.BlockInterval
	if blockInterval <= 0 {
		blockInterval = DefaultBlockInterval
	}
	horizon := opts.ScanHorizon
	if horizon <= 0 {
		horizon = DefaultScanHorizon
	}
	fallbackWindow := opts.FallbackWindow
	if fallbackWindow == 0 {
		fallbackWindow = DefaultFallbackWindow
	}

	quotes := make(map[string]string, len(opts.QuoteTokens))
	for addr, sym := range opts.QuoteTokens {
		quotes[strings.ToLower(addr)] = sym
	}

	if len(opts.Factories) == 0 {
		logger.Warn("pair-created strategy disabled: no factories configured")
	}

	return &EVMScanner{
		chain:          opts.Chain,
		client:         opts.Client,
		blockInterval:  blockInterval,
		horizon:        horizon,
		fallbackWindow: fallbackWindow,
		factories:      opts.Factories,
		quoteTokens:    quotes,
		blocks:         cache.New[uint64, int64](opts.CacheSize),
		log:            logger,
		nowFn:          time.Now,
	}
}

// logStrategy is one independent detection strategy: a filter over the scan
// window plus a decoder for its logs.
type logStrategy struct {
	name          string
	filter        func(from, to uint64) evm.Filter
	decode        func(lg evm.Log) (*pairEvent, error)
	resolveTokens bool // pool tokens must be read from the contract
}

func (s *EVMScanner) strategies() []logStrategy {
	var out []logStrategy

	if len(s.factories) > 0 {
		addrs := make([]string, 0, len(s.factories))
		for _, f := range s.factories {
			addrs = append(addrs, f.Address)
		}
		out = append(out, logStrategy{
			name: StrategyPairCreated,
			filter: func(from, to uint64) evm.Filter {
				return evm.Filter{
					FromBlock: evm.HexUint64(from),
					ToBlock:   evm.HexUint64(to),
					Addresses: addrs,
					Topics:    [][]string{{TopicPairCreatedV2, TopicPoolCreatedV3}},
				}
			},
			decode: decodePairCreated,
		})
	}

	out = append(out, logStrategy{
		name: StrategyLiquidity,
		filter: func(from, to uint64) evm.Filter {
			return evm.Filter{
				FromBlock: evm.HexUint64(from),
				ToBlock:   evm.HexUint64(to),
				Topics:    [][]string{{TopicLiquidityMint}},
			}
		},
		decode:        decodeLiquidityMint,
		resolveTokens: true,
	})

	return out
}

// Scan runs every enabled strategy concurrently over the recent window and
// returns the deduplicated results, most recent launch first. Strategy
// failures are isolated; Scan itself fails only when every strategy failed.
func (s *EVMScanner) Scan(ctx context.Context) ([]*domain.Asset, error) {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("head block: %w", err)
	}

	window := uint64(s.horizon / s.blockInterval)
	from := uint64(0)
	if head > window {
		from = head - window
	}

	strategies := s.strategies()
	results := make([][]*domain.Asset, len(strategies))
	errs := make([]error, len(strategies))

	var wg sync.WaitGroup
	for i, st := range strategies {
		wg.Add(1)
		go func(i int, st logStrategy) {
			defer wg.Done()
			results[i], errs[i] = s.runStrategy(ctx, st, from, head)
		}(i, st)
	}
	wg.Wait()

	var merged []*domain.Asset
	failed := 0
	for i, st := range strategies {
		if errs[i] != nil {
			failed++
			s.log.Warn("strategy failed", "strategy", st.name, "error", errs[i])
			continue
		}
		merged = append(merged, results[i]...)
	}
	if len(strategies) > 0 && failed == len(strategies) {
		return nil, fmt.Errorf("all %d strategies failed, window [%d, %d]", failed, from, head)
	}

	if len(merged) == 0 {
		fallback, err := s.runMintTransferFallback(ctx, head)
		if err != nil {
			s.log.Warn("mint-transfer fallback failed", "error", err)
		} else {
			merged = fallback
		}
	}

	merged = DedupeAssets(merged)
	SortAssetsByLaunch(merged)

	s.log.Info("scan window complete",
		"window_from", from, "window_to", head, "assets", len(merged), "failed_strategies", failed)
	return merged, nil
}

// CacheStats exposes the block cache hit/miss counters.
func (s *EVMScanner) CacheStats() (hits, misses uint64) {
	return s.blocks.Stats()
}

func (s *EVMScanner) runStrategy(ctx context.Context, st logStrategy, from, to uint64) ([]*domain.Asset, error) {
	logs, err := s.client.Logs(ctx, st.filter(from, to))
	if err != nil {
		return nil, fmt.Errorf("%s logs: %w", st.name, err)
	}

	var assets []*domain.Asset
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		asset, err := s.decodeLog(ctx, st, lg)
		if err != nil {
			s.log.Warn("skipping log", "strategy", st.name, "tx", lg.TxHash, "error", err)
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// runMintTransferFallback scans a very small recent sub-window for
// zero-address mint transfers. It runs once per scan and only when every
// regular strategy came back empty.
func (s *EVMScanner) runMintTransferFallback(ctx context.Context, head uint64) ([]*domain.Asset, error) {
	from := uint64(0)
	if head > s.fallbackWindow {
		from = head - s.fallbackWindow
	}
	st := logStrategy{
		name: StrategyMintTransfer,
		filter: func(from, to uint64) evm.Filter {
			return evm.Filter{
				FromBlock: evm.HexUint64(from),
				ToBlock:   evm.HexUint64(to),
				Topics:    [][]string{{TopicTransfer}, {topicZeroWord}},
			}
		},
		decode: decodeMintTransfer,
	}
	return s.runStrategy(ctx, st, from, head)
}

// decodeLog turns one raw log into an Asset: decode the payload, resolve
// the traded token's metadata, and stamp the originating block's time.
// Any failure skips just this log.
func (s *EVMScanner) decodeLog(ctx context.Context, st logStrategy, lg evm.Log) (*domain.Asset, error) {
	ev, err := st.decode(lg)
	if err != nil {
		return nil, err
	}

	token0, token1 := ev.Token0, ev.Token1
	if st.resolveTokens {
		token0, token1, err = s.client.PairTokens(ctx, ev.Pool)
		if err != nil {
			return nil, fmt.Errorf("resolve pool tokens: %w", err)
		}
	}

	token := s.pickTradedToken(token0, token1)
	if token == "" {
		return nil, fmt.Errorf("no token address in log")
	}

	symbol, err := s.client.TokenSymbol(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token symbol: %w", err)
	}
	name, err := s.client.TokenName(ctx, token)
	if err != nil {
		// Display name is cosmetic; the symbol stands in.
		name = symbol
	}

	addr := strings.ToLower(ev.Pool)
	now := s.nowFn().UnixMilli()
	return &domain.Asset{
		ID:         recordid.ForAsset(s.chain, addr),
		Symbol:     symbol,
		Name:       name,
		Chain:      s.chain,
		Address:    addr,
		Source:     st.name,
		LaunchedAt: s.blockTime(ctx, ev.Block),
		CreatedAt:  now,
	}, nil
}

// pickTradedToken chooses the non-quote side of a pair; a pair of two
// quote tokens (or a single token) falls back to the first address.
func (s *EVMScanner) pickTradedToken(token0, token1 string) string {
	t0, t1 := strings.ToLower(token0), strings.ToLower(token1)
	_, q0 := s.quoteTokens[t0]
	_, q1 := s.quoteTokens[t1]
	switch {
	case t0 != "" && !q0:
		return t0
	case t1 != "" && !q1:
		return t1
	case t0 != "":
		return t0
	default:
		return t1
	}
}

// blockTime resolves a block's timestamp through the bounded cache. The
// live fetch already waits on the rate gate and retries rate limits; when
// it still fails the scan time stands in so one unavailable block never
// aborts the batch. Synthetic times are not cached.
func (s *EVMScanner) blockTime(ctx context.Context, number uint64) int64 {
	if ms, ok := s.blocks.Get(number); ok {
		return ms
	}

	block, err := s.client.BlockByNumber(ctx, number)
	if err != nil {
		s.log.Warn("block timestamp unavailable, using scan time", "block", number, "error", err)
		return s.nowFn().UnixMilli()
	}
	ms, err := block.TimeMs()
	if err != nil {
		s.log.Warn("block timestamp malformed, using scan time", "block", number, "error", err)
		return s.nowFn().UnixMilli()
	}

	s.blocks.Put(number, ms)
	return ms
}
