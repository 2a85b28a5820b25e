// The radar daemon watches the configured chains for token launches,
// sweeps trending listings, aggregates news and publishes to Telegram on
// cron schedules, exposing Prometheus metrics while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"launch-radar/internal/app"
	"launch-radar/internal/config"
	"launch-radar/internal/domain"
	"launch-radar/internal/observability"
)

const shutdownGrace = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log)

	logger.Info("starting launch-radar",
		"storage", cfg.Storage.Driver,
		"evm_rpc", cfg.EVM.RPCURL,
		"sui_rpc", cfg.Sui.RPCURL,
		"news_chains", cfg.News.Chains,
		"publish", cfg.PublishEnabled(),
		"metrics_addr", cfg.Metrics.Addr,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to assemble components", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runMetricsServer(gCtx, cfg.Metrics.Addr, logger)
	})

	started := time.Now()
	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				observability.SetUptime(time.Since(started).Seconds())
			case <-gCtx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	// The streaming feed degrades to polling-only news when it cannot
	// connect; its read loop reconnects on later failures.
	if a.LiveFeed != nil {
		if err := a.LiveFeed.Start(gCtx); err != nil {
			logger.Warn("livefeed start failed, continuing without stream", "error", err)
		}
	}

	scheduler, err := buildSchedule(gCtx, cfg, a, logger)
	if err != nil {
		logger.Error("failed to build schedule", "error", err)
		cancel()
		os.Exit(1)
	}
	scheduler.Start()

	err = g.Wait()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(shutdownGrace):
		logger.Warn("running cycles did not finish before the shutdown grace period")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("radar exited with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	logger.Info("radar shut down gracefully")
}

// buildSchedule registers every active cycle with the cron runner. A slow
// cycle skips its next tick instead of stacking.
func buildSchedule(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) (*cron.Cron, error) {
	cl := cronLogger{log: logger}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)))

	addCycle := func(spec, task string, run func(context.Context) error) error {
		_, err := c.AddFunc(spec, func() {
			if err := run(ctx); err != nil {
				logger.Error("cycle failed", "task", task, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", task, spec, err)
		}
		return nil
	}

	for _, chain := range activeChains(cfg) {
		chain := chain
		err := addCycle(cfg.Schedule.ChainScan, "chain_scan", func(ctx context.Context) error {
			_, err := a.Runner.ChainScan(ctx, chain)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	if err := addCycle(cfg.Schedule.ListingSweep, "listing_sweep", func(ctx context.Context) error {
		_, err := a.Runner.ListingSweep(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	if err := addCycle(cfg.Schedule.NewsScan, "news_scan", func(ctx context.Context) error {
		_, err := a.Runner.NewsScan(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	if cfg.PublishEnabled() {
		if err := addCycle(cfg.Schedule.Publish, "publish", func(ctx context.Context) error {
			_, err := a.Runner.PublishCycle(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func activeChains(cfg *config.Config) []domain.Chain {
	var chains []domain.Chain
	if cfg.EVM.RPCURL != "" {
		chains = append(chains, domain.Chain(cfg.EVM.Chain))
	}
	if cfg.Sui.RPCURL != "" {
		chains = append(chains, domain.ChainSui)
	}
	return chains
}

func runMetricsServer(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}()

	logger.Info("metrics server started", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// cronLogger adapts slog to the cron runner's logging interface. Routine
// scheduling chatter goes to debug.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
