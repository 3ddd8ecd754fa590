package service

import (
	"time"

	"github.com/okian/storepulse/internal/domain/baseline"
	"github.com/okian/storepulse/internal/domain/liveness"
	"github.com/okian/storepulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the business timezone used for calendar dates and display.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithQueryTimeout bounds every data source call.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithMonitor replaces the default liveness policy.
func WithMonitor(m *liveness.Monitor) Option {
	return func(s *Service) {
		if m != nil {
			s.monitor = m
		}
	}
}

// WithBaselineModel replaces the baseline cache.
func WithBaselineModel(m *baseline.Model) Option {
	return func(s *Service) {
		if m != nil {
			s.baseline = m
		}
	}
}

// WithBackupTrigger wires the on-demand backup job.
func WithBackupTrigger(b BackupTrigger) Option {
	return func(s *Service) {
		s.backups = b
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
