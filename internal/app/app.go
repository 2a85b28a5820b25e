// Package app assembles the service from configuration: storage, chain
// scanners, news sources, the markets client, the publisher and the cycle
// runner. The radar daemon and the one-shot scan tool both build through
// it so their wiring cannot drift apart.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"launch-radar/internal/config"
	"launch-radar/internal/discovery"
	"launch-radar/internal/domain"
	"launch-radar/internal/evm"
	"launch-radar/internal/markets"
	"launch-radar/internal/news"
	"launch-radar/internal/publish"
	"launch-radar/internal/ratelimit"
	"launch-radar/internal/retry"
	"launch-radar/internal/runner"
	"launch-radar/internal/storage"
	chstore "launch-radar/internal/storage/clickhouse"
	"launch-radar/internal/storage/memory"
	"launch-radar/internal/storage/migrations"
	pgstore "launch-radar/internal/storage/postgres"
	"launch-radar/internal/sui"
)

// App holds the assembled components and the handles needed to shut them
// down.
type App struct {
	Runner   *runner.Runner
	LiveFeed *news.LiveFeed // nil without a configured stream URL
	Log      *slog.Logger

	pool   *pgstore.Pool
	chConn *chstore.Conn
}

// NewLogger builds the process logger from config and installs it as the
// slog default.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// New wires every configured component. Sides without configuration stay
// nil and their cycles become no-ops; an unreachable database is an error.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{Log: log}

	assets, newsStore, pubs, snapshots, err := a.buildStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	opts := runner.Options{
		Reconciler: discovery.NewReconciler(assets, newsStore, log),
		FreshPolicy: markets.FreshPairPolicy{
			MaxAge: max(cfg.EVM.ScanHorizon, cfg.Sui.ScanHorizon),
		},
		ListingPolicy: markets.ListingPolicy{
			MinLiquidityUSD: cfg.Markets.Listing.MinLiquidityUSD,
			MinVolume24h:    cfg.Markets.Listing.MinVolume24h,
			MaxAgeHours:     cfg.Markets.Listing.MaxAgeHours,
		},
		NewsLimit: cfg.News.Limit,
		Snapshots: snapshots,
		Logger:    log,
	}

	if cfg.EVM.RPCURL != "" {
		opts.EVMScanner = buildEVMScanner(cfg.EVM, log)
		log.Info("evm scanner configured", "chain", cfg.EVM.Chain, "factories", len(cfg.EVM.Factories))
	}
	if cfg.Sui.RPCURL != "" {
		opts.MoveScanner = buildMoveScanner(cfg.Sui, log)
		log.Info("move scanner configured", "packages", len(cfg.Sui.Packages))
	}

	opts.Markets = markets.NewClient(cfg.Markets.BaseURL,
		markets.WithTimeout(cfg.Markets.RequestTimeout))

	opts.News = buildAggregator(cfg.News, log)
	for _, c := range cfg.News.Chains {
		opts.NewsChains = append(opts.NewsChains, domain.Chain(c))
	}
	opts.Annotator = news.NewAnnotator(news.AnnotatorOptions{
		APIKey:   cfg.News.Sentiment.APIKey,
		Model:    cfg.News.Sentiment.Model,
		MaxItems: cfg.News.Sentiment.MaxItems,
		Logger:   log,
	})

	if cfg.News.Livefeed.URL != "" {
		a.LiveFeed = news.NewLiveFeed(news.LiveFeedOptions{
			URL:        cfg.News.Livefeed.URL,
			BufferSize: cfg.News.Livefeed.Buffer,
			Logger:     log,
		})
		opts.Headlines = a.LiveFeed
	}

	if cfg.PublishEnabled() {
		publisher, err := buildPublisher(cfg, pubs, assets, newsStore, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts.Publisher = publisher
		log.Info("publisher configured", "destinations", len(cfg.Destinations()))
	}

	a.Runner = runner.New(opts)
	return a, nil
}

// Close releases database handles and the streaming feed.
func (a *App) Close() {
	if a.LiveFeed != nil {
		if err := a.LiveFeed.Close(); err != nil {
			a.Log.Warn("livefeed close failed", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.chConn != nil {
		if err := a.chConn.Close(); err != nil {
			a.Log.Warn("clickhouse close failed", "error", err)
		}
	}
}

func (a *App) buildStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.AssetStore, storage.NewsStore, storage.PublicationStore, storage.SnapshotStore, error) {
	var (
		assets    storage.AssetStore
		newsStore storage.NewsStore
		pubs      storage.PublicationStore
		snapshots storage.SnapshotStore
	)

	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			a.Close()
			return nil, nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		assets = pgstore.NewAssetStore(pool)
		newsStore = pgstore.NewNewsStore(pool)
		pubs = pgstore.NewPublicationStore(pool)
		log.Info("postgres storage ready")
	default:
		memAssets := memory.NewAssetStore()
		memNews := memory.NewNewsStore()
		assets = memAssets
		newsStore = memNews
		pubs = memory.NewPublicationStore(memAssets, memNews)
		snapshots = memory.NewSnapshotStore()
		log.Info("in-memory storage ready, state is lost on restart")
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			a.Close()
			return nil, nil, nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		a.chConn = conn
		snapshots = chstore.NewSnapshotStore(conn)
		log.Info("clickhouse snapshot series ready")
	} else if snapshots == nil {
		log.Info("market snapshot series disabled, no clickhouse dsn")
	}

	return assets, newsStore, pubs, snapshots, nil
}

func buildEVMScanner(cfg config.EVMConfig, log *slog.Logger) *discovery.EVMScanner {
	client := evm.NewClient(cfg.RPCURL,
		evm.WithTimeout(cfg.RequestTimeout),
		evm.WithGate(ratelimit.NewGate(cfg.MinRequestInterval)),
		evm.WithRetryPolicy(retryPolicy(cfg.Retry)),
	)

	factories := make([]discovery.Factory, 0, len(cfg.Factories))
	for _, f := range cfg.Factories {
		factories = append(factories, discovery.Factory{Address: f.Address, Label: f.Label})
	}

	return discovery.NewEVMScanner(discovery.EVMScannerOptions{
		Chain:          domain.Chain(cfg.Chain),
		Client:         client,
		BlockInterval:  cfg.BlockInterval,
		ScanHorizon:    cfg.ScanHorizon,
		FallbackWindow: cfg.FallbackWindow,
		Factories:      factories,
		QuoteTokens:    cfg.QuoteTokens,
		Logger:         log,
	})
}

func buildMoveScanner(cfg config.SuiConfig, log *slog.Logger) *discovery.MoveScanner {
	client := sui.NewClient(cfg.RPCURL,
		sui.WithTimeout(cfg.RequestTimeout),
		sui.WithGate(ratelimit.NewGate(cfg.MinRequestInterval)),
		sui.WithRetryPolicy(retry.DefaultPolicy()),
	)

	packages := make([]discovery.MovePackage, 0, len(cfg.Packages))
	for _, p := range cfg.Packages {
		packages = append(packages, discovery.MovePackage{
			ID:         p.ID,
			Label:      p.Label,
			EventTypes: p.EventTypes,
		})
	}

	quoteCoins := make(map[string]string, len(cfg.QuoteCoins))
	for _, ct := range cfg.QuoteCoins {
		quoteCoins[ct] = discovery.CoinSymbol(ct)
	}

	return discovery.NewMoveScanner(discovery.MoveScannerOptions{
		Client:      client,
		Packages:    packages,
		QuoteCoins:  quoteCoins,
		ScanHorizon: cfg.ScanHorizon,
		PageSize:    cfg.PageSize,
		MaxPages:    cfg.MaxPages,
		Logger:      log,
	})
}

// buildAggregator wires every provider; sources without credentials report
// ErrNotConfigured on fetch and the aggregator moves past them.
func buildAggregator(cfg config.NewsConfig, log *slog.Logger) *news.Aggregator {
	cryptopanic := news.NewCryptoPanic(news.CryptoPanicOptions{
		APIKey:  cfg.CryptoPanic.APIKey,
		BaseURL: cfg.CryptoPanic.BaseURL,
	})
	newsapi := news.NewNewsAPI(news.NewsAPIOptions{
		APIKey:  cfg.NewsAPI.APIKey,
		BaseURL: cfg.NewsAPI.BaseURL,
	})
	cryptocompare := news.NewCryptoCompare(news.CryptoCompareOptions{
		APIKey:  cfg.CryptoCompare.APIKey,
		BaseURL: cfg.CryptoCompare.BaseURL,
	})

	return news.NewAggregator(news.AggregatorOptions{
		Primary:      cryptopanic,
		Fallbacks:    []news.Source{newsapi, cryptocompare},
		ChainSources: []news.Source{cryptopanic, cryptocompare},
		Logger:       log,
	})
}

func buildPublisher(cfg *config.Config, pubs storage.PublicationStore, assets storage.AssetStore, newsStore storage.NewsStore, log *slog.Logger) (*publish.Publisher, error) {
	sender, err := publish.NewTelegramSender(cfg.Publish.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram sender: %w", err)
	}
	tracker := publish.NewTracker(pubs, assets, newsStore, log)
	return publish.NewPublisher(publish.PublisherOptions{
		Tracker:      tracker,
		Sender:       sender,
		Destinations: cfg.Destinations(),
		BatchLimit:   cfg.Publish.Batch,
		Logger:       log,
	}), nil
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelay > 0 {
		p.InitialDelay = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	return p
}
