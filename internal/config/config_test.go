package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
symbol: SPX
api:
  rest_url: https://api.cert.tastyworks.com
  max_retries: 5
database:
  enabled: true
  host: localhost
  port: 5432
  name: test_db
  user: testuser
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Symbol != "SPX" {
		t.Errorf("Symbol = %q, want %q", cfg.Symbol, "SPX")
	}
	if cfg.API.RestURL != "https://api.cert.tastyworks.com" {
		t.Errorf("API.RestURL = %q, want %q", cfg.API.RestURL, "https://api.cert.tastyworks.com")
	}
	if cfg.API.MaxRetries != 5 {
		t.Errorf("API.MaxRetries = %d, want 5", cfg.API.MaxRetries)
	}
	if !cfg.Database.Enabled {
		t.Error("Database.Enabled = false, want true")
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  enabled: true
  host: localhost
  name: test_db
  user: testuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "symbol: SPY\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Symbol != "SPY" {
		t.Errorf("Symbol = %q, want %q (explicit value must survive defaults)", cfg.Symbol, "SPY")
	}
	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Execution.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Execution.MaxAttempts = %d, want %d", cfg.Execution.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Execution.PollInterval != time.Second {
		t.Errorf("Execution.PollInterval = %v, want 1s", cfg.Execution.PollInterval)
	}
	if !cfg.Execution.CancelUnfilledEnabled() {
		t.Error("CancelUnfilledEnabled() = false by default, want true")
	}
	if !cfg.Execution.MarketFallbackEnabled() {
		t.Error("MarketFallbackEnabled() = false by default, want true")
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestExecutionToggles(t *testing.T) {
	yaml := `
execution:
  cancel_unfilled: false
  market_fallback: false
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Execution.CancelUnfilledEnabled() {
		t.Error("CancelUnfilledEnabled() = true, want false when explicitly disabled")
	}
	if cfg.Execution.MarketFallbackEnabled() {
		t.Error("MarketFallbackEnabled() = true, want false when explicitly disabled")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		path := writeTempFile(t, "symbol: SPX\n")
		cfg, err := LoadWithDefaults(path)
		if err != nil {
			t.Fatalf("LoadWithDefaults failed: %v", err)
		}
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing symbol", func(t *testing.T) {
		cfg := valid()
		cfg.Symbol = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil, want error for empty symbol")
		}
	})

	t.Run("bad max attempts", func(t *testing.T) {
		cfg := valid()
		cfg.Execution.MaxAttempts = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil, want error for max_attempts = 0")
		}
	})

	t.Run("enabled database requires credentials", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Enabled = true
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "database.host") {
			t.Errorf("Validate() = %v, want database.host error", err)
		}
	})

	t.Run("bad health port", func(t *testing.T) {
		cfg := valid()
		cfg.Health.Port = 70000
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil, want error for out-of-range port")
		}
	})
}
