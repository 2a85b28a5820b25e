// Package config loads the yaml configuration file, applies defaults, and
// validates required fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a radar instance.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	EVM      EVMConfig      `yaml:"evm"`
	Sui      SuiConfig      `yaml:"sui"`
	News     NewsConfig     `yaml:"news"`
	Markets  MarketsConfig  `yaml:"markets"`
	Publish  PublishConfig  `yaml:"publish"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// StorageConfig selects the storage driver and its connections.
type StorageConfig struct {
	Driver        string `yaml:"driver"` // postgres|memory
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional; empty disables snapshots
}

// RetryConfig holds client retry settings.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// FactoryConfig identifies one watched DEX factory contract. The scanner
// recognizes both V2 pair and V3 pool creation events from any factory by
// topic, so no version needs declaring.
type FactoryConfig struct {
	Address string `yaml:"address"`
	Label   string `yaml:"label"`
}

// EVMConfig holds the EVM chain scanner settings.
type EVMConfig struct {
	Chain              string            `yaml:"chain"`
	RPCURL             string            `yaml:"rpc_url"`
	BlockInterval      time.Duration     `yaml:"block_interval"`
	ScanHorizon        time.Duration     `yaml:"scan_horizon"`
	FallbackWindow     uint64            `yaml:"fallback_window"` // blocks
	RequestTimeout     time.Duration     `yaml:"request_timeout"`
	MinRequestInterval time.Duration     `yaml:"min_request_interval"`
	Retry              RetryConfig       `yaml:"retry"`
	Factories          []FactoryConfig   `yaml:"factories"`
	QuoteTokens        map[string]string `yaml:"quote_tokens"` // address -> symbol
}

// PackageConfig identifies one watched Move package.
type PackageConfig struct {
	ID         string   `yaml:"id"`
	Label      string   `yaml:"label"`
	EventTypes []string `yaml:"event_types"`
}

// SuiConfig holds the Sui scanner settings.
type SuiConfig struct {
	RPCURL             string          `yaml:"rpc_url"`
	ScanHorizon        time.Duration   `yaml:"scan_horizon"`
	RequestTimeout     time.Duration   `yaml:"request_timeout"`
	MinRequestInterval time.Duration   `yaml:"min_request_interval"`
	MaxPages           int             `yaml:"max_pages"`
	PageSize           int             `yaml:"page_size"`
	Packages           []PackageConfig `yaml:"packages"`
	QuoteCoins         []string        `yaml:"quote_coins"`
}

// SourceConfig holds one news source's credentials and endpoint.
type SourceConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LivefeedConfig holds the websocket headline feed settings.
type LivefeedConfig struct {
	URL    string `yaml:"url"`
	Buffer int    `yaml:"buffer"`
}

// SentimentConfig holds the headline sentiment annotator settings.
type SentimentConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	MaxItems int    `yaml:"max_items"`
}

// NewsConfig holds news aggregation settings.
type NewsConfig struct {
	CryptoPanic   SourceConfig    `yaml:"cryptopanic"`
	NewsAPI       SourceConfig    `yaml:"newsapi"`
	CryptoCompare SourceConfig    `yaml:"cryptocompare"`
	Livefeed      LivefeedConfig  `yaml:"livefeed"`
	Sentiment     SentimentConfig `yaml:"sentiment"`
	Chains        []string        `yaml:"chains"` // chain-specific feeds to run
	Limit         int             `yaml:"limit"`
}

// ListingConfig holds the externally-sourced listing thresholds.
type ListingConfig struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MinVolume24h    float64 `yaml:"min_volume_24h"`
	MaxAgeHours     int     `yaml:"max_age_hours"`
}

// MarketsConfig holds the market data client settings.
type MarketsConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Listing        ListingConfig `yaml:"listing"`
}

// TelegramConfig holds the bot credentials and publish targets.
type TelegramConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
	GroupID   string `yaml:"group_id"`
}

// PublishConfig holds publishing settings.
type PublishConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Batch    int            `yaml:"batch"`
}

// ScheduleConfig holds the cron expression for each periodic task.
type ScheduleConfig struct {
	ChainScan    string `yaml:"chain_scan"`
	ListingSweep string `yaml:"listing_sweep"`
	NewsScan     string `yaml:"news_scan"`
	Publish      string `yaml:"publish"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
