package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "STOREPULSE_"
	envConfigPath = "STOREPULSE_CONFIG"
)

var backends = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STOREPULSE_CONFIG is set
//  3. env (prefix STOREPULSE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// STOREPULSE_QUERY_TIMEOUT_MS -> query_timeout_ms (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		if s == "config" {
			return ""
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime failures.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !backends[c.DBBackend]:
		return fmt.Errorf("%w: unknown db_backend %q", ErrInvalidConfig, c.DBBackend)
	case c.DBBackend != "sqlite" && c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn is required for %s", ErrInvalidConfig, c.DBBackend)
	case c.QueryTimeoutMS <= 0:
		return fmt.Errorf("%w: query_timeout_ms must be positive", ErrInvalidConfig)
	case c.ItemIdleThresholdMin <= 0 || c.CartIdleThresholdMin <= 0 || c.TrailingWindowMin <= 0:
		return fmt.Errorf("%w: idle thresholds and trailing window must be positive", ErrInvalidConfig)
	case c.BackupEnabled && c.BackupCheckIntervalMin <= 0:
		return fmt.Errorf("%w: backup_check_interval_min must be positive", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: business_timezone %q: %w", ErrInvalidConfig, c.BusinessTimezone, err)
	}
	return nil
}
