package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultStorageDriver = "memory"

	DefaultEVMChain           = "base"
	DefaultBlockInterval      = 2 * time.Second
	DefaultScanHorizon        = 5 * time.Minute
	DefaultFallbackWindow     = 40
	DefaultRequestTimeout     = 10 * time.Second
	DefaultMinRequestInterval = 250 * time.Millisecond

	DefaultRetryMaxAttempts  = 4
	DefaultRetryInitialDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay     = 8 * time.Second

	DefaultSuiMaxPages = 5
	DefaultSuiPageSize = 50

	DefaultLivefeedBuffer    = 256
	DefaultSentimentModel    = "gpt-4o-mini"
	DefaultSentimentMaxItems = 10
	DefaultNewsLimit         = 25

	DefaultMinLiquidityUSD = 10000.0
	DefaultMinVolume24h    = 5000.0
	DefaultMaxAgeHours     = 48

	DefaultPublishBatch = 5

	DefaultChainScanSchedule    = "*/2 * * * *"
	DefaultListingSweepSchedule = "*/10 * * * *"
	DefaultNewsScanSchedule     = "*/5 * * * *"
	DefaultPublishSchedule      = "*/3 * * * *"

	DefaultMetricsAddr = ":9090"
)

func (c *Config) applyDefaults() {
	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}

	// EVM defaults
	if c.EVM.Chain == "" {
		c.EVM.Chain = DefaultEVMChain
	}
	if c.EVM.BlockInterval == 0 {
		c.EVM.BlockInterval = DefaultBlockInterval
	}
	if c.EVM.ScanHorizon == 0 {
		c.EVM.ScanHorizon = DefaultScanHorizon
	}
	if c.EVM.FallbackWindow == 0 {
		c.EVM.FallbackWindow = DefaultFallbackWindow
	}
	if c.EVM.RequestTimeout == 0 {
		c.EVM.RequestTimeout = DefaultRequestTimeout
	}
	if c.EVM.MinRequestInterval == 0 {
		c.EVM.MinRequestInterval = DefaultMinRequestInterval
	}
	applyRetryDefaults(&c.EVM.Retry)

	// Sui defaults
	if c.Sui.ScanHorizon == 0 {
		c.Sui.ScanHorizon = DefaultScanHorizon
	}
	if c.Sui.RequestTimeout == 0 {
		c.Sui.RequestTimeout = DefaultRequestTimeout
	}
	if c.Sui.MinRequestInterval == 0 {
		c.Sui.MinRequestInterval = DefaultMinRequestInterval
	}
	if c.Sui.MaxPages == 0 {
		c.Sui.MaxPages = DefaultSuiMaxPages
	}
	if c.Sui.PageSize == 0 {
		c.Sui.PageSize = DefaultSuiPageSize
	}

	// News defaults
	if c.News.Livefeed.Buffer == 0 {
		c.News.Livefeed.Buffer = DefaultLivefeedBuffer
	}
	if c.News.Sentiment.Model == "" {
		c.News.Sentiment.Model = DefaultSentimentModel
	}
	if c.News.Sentiment.MaxItems == 0 {
		c.News.Sentiment.MaxItems = DefaultSentimentMaxItems
	}
	if c.News.Limit == 0 {
		c.News.Limit = DefaultNewsLimit
	}

	// Markets defaults
	if c.Markets.RequestTimeout == 0 {
		c.Markets.RequestTimeout = DefaultRequestTimeout
	}
	if c.Markets.Listing.MinLiquidityUSD == 0 {
		c.Markets.Listing.MinLiquidityUSD = DefaultMinLiquidityUSD
	}
	if c.Markets.Listing.MinVolume24h == 0 {
		c.Markets.Listing.MinVolume24h = DefaultMinVolume24h
	}
	if c.Markets.Listing.MaxAgeHours == 0 {
		c.Markets.Listing.MaxAgeHours = DefaultMaxAgeHours
	}

	// Publish defaults
	if c.Publish.Batch == 0 {
		c.Publish.Batch = DefaultPublishBatch
	}

	// Schedule defaults
	if c.Schedule.ChainScan == "" {
		c.Schedule.ChainScan = DefaultChainScanSchedule
	}
	if c.Schedule.ListingSweep == "" {
		c.Schedule.ListingSweep = DefaultListingSweepSchedule
	}
	if c.Schedule.NewsScan == "" {
		c.Schedule.NewsScan = DefaultNewsScanSchedule
	}
	if c.Schedule.Publish == "" {
		c.Schedule.Publish = DefaultPublishSchedule
	}

	// Metrics defaults
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

func applyRetryDefaults(r *RetryConfig) {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultRetryMaxAttempts
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = DefaultRetryInitialDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = DefaultRetryMaxDelay
	}
}
