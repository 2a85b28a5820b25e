// The scan tool runs one radar cycle from the command line and exits.
// Useful for trying a config against live endpoints and for ad-hoc
// backfills without the daemon's scheduler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"launch-radar/internal/app"
	"launch-radar/internal/config"
	"launch-radar/internal/discovery"
	"launch-radar/internal/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	task := flag.String("task", "all", "Cycle to run: chain_scan, listing_sweep, news_scan, publish, or all")
	chainFlag := flag.String("chain", "", "Network for chain_scan; defaults to every configured chain")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run deadline")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to assemble components", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if !run(ctx, cfg, a, logger, *task, *chainFlag) {
		a.Close()
		os.Exit(1)
	}
}

// run executes the requested task and reports whether every cycle
// succeeded.
func run(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger, task, chainFlag string) bool {
	ok := true
	fail := func(name string, err error) {
		logger.Error("cycle failed", "task", name, "error", err)
		ok = false
	}
	report := func(name string, sum discovery.Summary) {
		logger.Info("cycle finished", "task", name,
			"processed", sum.Processed, "saved", sum.Saved,
			"skipped", sum.Skipped, "failed", sum.Failed)
	}

	runChainScans := func() {
		chains := scanChains(cfg, chainFlag)
		if len(chains) == 0 {
			logger.Warn("no chains configured for scanning")
			return
		}
		for _, chain := range chains {
			sum, err := a.Runner.ChainScan(ctx, chain)
			if err != nil {
				fail("chain_scan", err)
				continue
			}
			report("chain_scan", sum)
		}
	}

	switch task {
	case "chain_scan":
		runChainScans()
	case "listing_sweep":
		if sum, err := a.Runner.ListingSweep(ctx); err != nil {
			fail(task, err)
		} else {
			report(task, sum)
		}
	case "news_scan":
		if sum, err := a.Runner.NewsScan(ctx); err != nil {
			fail(task, err)
		} else {
			report(task, sum)
		}
	case "publish":
		if sum, err := a.Runner.PublishCycle(ctx); err != nil {
			fail(task, err)
		} else {
			report(task, sum)
		}
	case "all":
		runChainScans()
		if sum, err := a.Runner.ListingSweep(ctx); err != nil {
			fail("listing_sweep", err)
		} else {
			report("listing_sweep", sum)
		}
		if sum, err := a.Runner.NewsScan(ctx); err != nil {
			fail("news_scan", err)
		} else {
			report("news_scan", sum)
		}
		if cfg.PublishEnabled() {
			if sum, err := a.Runner.PublishCycle(ctx); err != nil {
				fail("publish", err)
			} else {
				report("publish", sum)
			}
		}
	default:
		logger.Error("unknown task", "task", task)
		return false
	}
	return ok
}

func scanChains(cfg *config.Config, chainFlag string) []domain.Chain {
	if chainFlag != "" {
		return []domain.Chain{domain.Chain(chainFlag)}
	}
	var chains []domain.Chain
	if cfg.EVM.RPCURL != "" {
		chains = append(chains, domain.Chain(cfg.EVM.Chain))
	}
	if cfg.Sui.RPCURL != "" {
		chains = append(chains, domain.ChainSui)
	}
	return chains
}
