package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the trading assistant.
type Config struct {
	Symbol    string          `yaml:"symbol"` // Underlying symbol to track (e.g., "SPX")
	API       APIConfig       `yaml:"api"`
	Feed      FeedConfig      `yaml:"feed"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Execution ExecutionConfig `yaml:"execution"`
	Database  DatabaseConfig  `yaml:"database"`
	Journal   JournalConfig   `yaml:"journal"`
	Health    HealthConfig    `yaml:"health"`
}

// APIConfig holds brokerage REST API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	StreamURL  string        `yaml:"stream_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RateLimit  float64       `yaml:"rate_limit"` // Requests per second, 0 = unlimited
}

// FeedConfig holds streaming feed settings.
type FeedConfig struct {
	SubscribeTimeout time.Duration `yaml:"subscribe_timeout"` // Per subscribe/unsubscribe command
	EventTimeout     time.Duration `yaml:"event_timeout"`     // Per gathered event batch
	BufferSize       int           `yaml:"buffer_size"`       // Per-event-kind delivery buffer
}

// SnapshotConfig holds market-data snapshot loop settings.
type SnapshotConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ExecutionConfig holds adaptive order execution settings.
type ExecutionConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	CancelUnfilled *bool         `yaml:"cancel_unfilled"` // nil = default (true)
	MarketFallback *bool         `yaml:"market_fallback"` // nil = default (true)
}

// DatabaseConfig holds the optional persistence database.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// JournalConfig holds batch writer settings.
type JournalConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HealthConfig holds health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
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

// CancelUnfilledEnabled reports whether stale limit orders are cancelled
// before the next repriced attempt.
func (c *ExecutionConfig) CancelUnfilledEnabled() bool {
	return c.CancelUnfilled == nil || *c.CancelUnfilled
}

// MarketFallbackEnabled reports whether attempt exhaustion falls back to a
// market order.
func (c *ExecutionConfig) MarketFallbackEnabled() bool {
	return c.MarketFallback == nil || *c.MarketFallback
}
