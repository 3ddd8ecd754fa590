package repository

import (
	"time"

	"github.com/okian/storepulse/pkg/logger"
)

// Config describes how to reach the database.
type Config struct {
	Backend         string
	DSN             string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// GuardOption configures a Guarded source.
type GuardOption func(*guardSettings)

type guardSettings struct {
	name        string
	maxFailures uint32
	openTimeout time.Duration
}

// WithBreakerName names the breaker in logs and metrics.
func WithBreakerName(name string) GuardOption {
	return func(g *guardSettings) {
		if name != "" {
			g.name = name
		}
	}
}

// WithMaxFailures sets the consecutive failures that open the breaker.
func WithMaxFailures(n int) GuardOption {
	return func(g *guardSettings) {
		if n > 0 {
			g.maxFailures = uint32(n)
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing again.
func WithOpenTimeout(d time.Duration) GuardOption {
	return func(g *guardSettings) {
		if d > 0 {
			g.openTimeout = d
		}
	}
}
