// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults; Load layers file and env on top.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIKey is compared against the X-API-Key header on protected routes.
	// Empty disables the check.
	APIKey string `koanf:"api_key"`

	// BusinessTimezone is the IANA zone used for calendar dates and for
	// presenting timestamps.
	BusinessTimezone string `koanf:"business_timezone"`

	// Data source.
	DBBackend            string `koanf:"db_backend"`
	DBDSN                string `koanf:"db_dsn"`
	DBSchema             string `koanf:"db_schema"`
	DBMaxOpenConns       int    `koanf:"db_max_open_conns"`
	DBMaxIdleConns       int    `koanf:"db_max_idle_conns"`
	DBConnMaxLifetimeSec int    `koanf:"db_conn_max_lifetime_sec"`

	// QueryTimeoutMS bounds every data source call.
	QueryTimeoutMS int `koanf:"query_timeout_ms"`

	// Circuit breaker around the data source.
	BreakerMaxFailures    int `koanf:"breaker_max_failures"`
	BreakerOpenTimeoutSec int `koanf:"breaker_open_timeout_sec"`

	// Live-status policy.
	ItemIdleThresholdMin int `koanf:"item_idle_threshold_min"`
	CartIdleThresholdMin int `koanf:"cart_idle_threshold_min"`
	TrailingWindowMin    int `koanf:"trailing_window_min"`

	// RateLimits maps route names to requests per minute.
	RateLimits map[string]int `koanf:"rate_limits"`

	// Version payload served on /version.
	Version     string `koanf:"version"`
	DownloadURL string `koanf:"download_url"`

	// Backup job.
	BackupEnabled          bool   `koanf:"backup_enabled"`
	BackupDir              string `koanf:"backup_dir"`
	BackupCheckIntervalMin int    `koanf:"backup_check_interval_min"`
	BackupMinGapMin        int    `koanf:"backup_min_gap_min"`
	MysqldumpPath          string `koanf:"mysqldump_path"`
	BackupS3Bucket         string `koanf:"backup_s3_bucket"`
	BackupS3Prefix         string `koanf:"backup_s3_prefix"`
	BackupS3Region         string `koanf:"backup_s3_region"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		BusinessTimezone:       "America/New_York",
		DBBackend:              "mysql",
		DBMaxOpenConns:         10,
		DBMaxIdleConns:         5,
		DBConnMaxLifetimeSec:   300,
		QueryTimeoutMS:         5000,
		BreakerMaxFailures:     5,
		BreakerOpenTimeoutSec:  30,
		ItemIdleThresholdMin:   20,
		CartIdleThresholdMin:   60,
		TrailingWindowMin:      60,
		RateLimits:             DefaultRateLimits(),
		Version:                "1.2.0",
		DownloadURL:            "/updates/YourApp-1.2.0.zip",
		BackupDir:              "./backups",
		BackupCheckIntervalMin: 10,
		BackupMinGapMin:        120,
		MysqldumpPath:          "/usr/local/bin/mysqldump",
		BackupS3Region:         "us-east-1",
	}
}

// DefaultRateLimits returns the per-route request budgets per minute.
func DefaultRateLimits() map[string]int {
	return map[string]int{
		"health":      10,
		"version":     10,
		"probability": 2,
		"activity":    20,
		"sales":       2,
		"carts":       2,
		"accounts":    50,
	}
}

// QueryTimeout returns QueryTimeoutMS as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// ItemIdleThreshold returns the short idle threshold.
func (c *Config) ItemIdleThreshold() time.Duration {
	return time.Duration(c.ItemIdleThresholdMin) * time.Minute
}

// CartIdleThreshold returns the long idle threshold.
func (c *Config) CartIdleThreshold() time.Duration {
	return time.Duration(c.CartIdleThresholdMin) * time.Minute
}

// TrailingWindow returns the trailing activity window.
func (c *Config) TrailingWindow() time.Duration {
	return time.Duration(c.TrailingWindowMin) * time.Minute
}

// Location loads BusinessTimezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.BusinessTimezone)
}
