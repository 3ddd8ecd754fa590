package backup

import (
	"time"

	"github.com/okian/storepulse/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithInterval sets how often the scheduler checks whether a backup is due.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMinGap sets the minimum time between two successful backups.
func WithMinGap(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.minGap = d
		}
	}
}

// WithLocation sets the zone used to name backup directories.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time.Now, mostly useful in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// DumperOption applies a configuration option to the Dumper.
type DumperOption func(*Dumper)

// WithBinary sets the mysqldump executable.
func WithBinary(path string) DumperOption {
	return func(d *Dumper) {
		if path != "" {
			d.binary = path
		}
	}
}

// WithRoot sets the directory backups are written under.
func WithRoot(dir string) DumperOption {
	return func(d *Dumper) {
		if dir != "" {
			d.root = dir
		}
	}
}

// WithRunner replaces the process runner.
func WithRunner(r Runner) DumperOption {
	return func(d *Dumper) {
		if r != nil {
			d.runner = r
		}
	}
}

// WithUploader copies every dump file off-site after it is written.
func WithUploader(u Uploader) DumperOption {
	return func(d *Dumper) {
		if u != nil {
			d.uploader = u
		}
	}
}

// WithDumperLogger sets a custom logger for the dumper.
func WithDumperLogger(l logger.Logger) DumperOption {
	return func(d *Dumper) {
		if l != nil {
			d.logger = l
		}
	}
}
