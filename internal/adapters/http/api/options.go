package api

import (
	"time"

	"github.com/okian/storepulse/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAPIKey protects /probability, /carts and /accounts with key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithVersion sets the payload of /version.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithRateLimits sets per-route budgets in requests per minute. The
// "backup" entry is counted per hour. Non-positive values remove the limit.
func WithRateLimits(limits map[string]int) Option {
	return func(s *Server) {
		for name, n := range limits {
			if n <= 0 {
				delete(s.limits, name)
				continue
			}
			per := time.Minute
			if name == "backup" {
				per = time.Hour
			}
			s.limits[name] = limitSpec{n: n, per: per}
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
