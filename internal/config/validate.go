package config

import (
	"errors"
	"fmt"

	"launch-radar/internal/domain"
)

// Validate checks that all required fields are set and values are valid.
// Missing per-source keys are not errors: they disable that source.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug|info|warn|error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text|json, got %q", c.Log.Format)
	}

	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres|memory, got %q", c.Storage.Driver)
	}

	chain := domain.Chain(c.EVM.Chain)
	if !chain.IsValid() || !chain.IsEVM() {
		return fmt.Errorf("evm.chain must be an EVM network, got %q", c.EVM.Chain)
	}
	for i, f := range c.EVM.Factories {
		if f.Address == "" {
			return fmt.Errorf("evm.factories[%d].address is required", i)
		}
	}

	for i, p := range c.Sui.Packages {
		if p.ID == "" {
			return fmt.Errorf("sui.packages[%d].id is required", i)
		}
	}
	if c.Sui.PageSize < 1 {
		return errors.New("sui.page_size must be >= 1")
	}
	if c.Sui.MaxPages < 1 {
		return errors.New("sui.max_pages must be >= 1")
	}

	for i, name := range c.News.Chains {
		nc := domain.Chain(name)
		if !nc.IsValid() || nc == domain.ChainGeneral {
			return fmt.Errorf("news.chains[%d] must be a network tag, got %q", i, name)
		}
	}
	if c.News.Limit < 1 {
		return errors.New("news.limit must be >= 1")
	}
	if c.News.Livefeed.Buffer < 1 {
		return errors.New("news.livefeed.buffer must be >= 1")
	}

	tg := c.Publish.Telegram
	hasDestination := tg.ChannelID != "" || tg.GroupID != ""
	if tg.BotToken != "" && !hasDestination {
		return errors.New("publish.telegram: bot_token set but no channel_id or group_id")
	}
	if tg.BotToken == "" && hasDestination {
		return errors.New("publish.telegram: destination set but bot_token missing")
	}
	if c.Publish.Batch < 1 {
		return errors.New("publish.batch must be >= 1")
	}

	if c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required")
	}

	return nil
}

// PublishEnabled reports whether telegram publishing is configured.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Telegram.BotToken != ""
}

// Destinations builds the configured publish targets, channel first.
func (c *Config) Destinations() []domain.Destination {
	var dests []domain.Destination
	if c.Publish.Telegram.ChannelID != "" {
		dests = append(dests, domain.Destination{Class: domain.DestChannel, ID: c.Publish.Telegram.ChannelID})
	}
	if c.Publish.Telegram.GroupID != "" {
		dests = append(dests, domain.Destination{Class: domain.DestGroup, ID: c.Publish.Telegram.GroupID})
	}
	return dests
}
