package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSymbol           = "SPX"
	DefaultRestURL          = "https://api.tastytrade.com"
	DefaultStreamURL        = "wss://tasty-openapi-ws.dxfeed.com/realtime"
	DefaultAPITimeout       = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultRateLimit        = 10.0 // requests per second
	DefaultSubscribeTimeout = 10 * time.Second
	DefaultEventTimeout     = 30 * time.Second
	DefaultFeedBufferSize   = 1000
	DefaultSnapshotInterval = time.Minute
	DefaultMaxAttempts      = 5
	DefaultAttemptTimeout   = 2 * time.Second
	DefaultPollInterval     = time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultBatchSize        = 100
	DefaultFlushInterval    = time.Second
	DefaultBufferSize       = 1000
	DefaultHealthPort       = 8080
)

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = DefaultSymbol
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.StreamURL == "" {
		c.API.StreamURL = DefaultStreamURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}

	// Feed defaults
	if c.Feed.SubscribeTimeout == 0 {
		c.Feed.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if c.Feed.EventTimeout == 0 {
		c.Feed.EventTimeout = DefaultEventTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Snapshot defaults
	if c.Snapshot.Interval == 0 {
		c.Snapshot.Interval = DefaultSnapshotInterval
	}

	// Execution defaults
	if c.Execution.MaxAttempts == 0 {
		c.Execution.MaxAttempts = DefaultMaxAttempts
	}
	if c.Execution.AttemptTimeout == 0 {
		c.Execution.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Execution.PollInterval == 0 {
		c.Execution.PollInterval = DefaultPollInterval
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}
