// Package backup runs periodic and on-demand database dumps outside the
// request path.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/storepulse/pkg/logger"
	"github.com/okian/storepulse/pkg/metrics"
)

const (
	defaultInterval = 10 * time.Minute
	defaultMinGap   = 2 * time.Hour
)

// Job performs one backup stamped with at.
type Job interface {
	Run(ctx context.Context, at time.Time) error
}

// Scheduler starts a Job at most once per minimum gap, either on its own
// ticker or through Trigger. At most one run is in flight at a time and a
// failed run never surfaces to the caller that started it.
type Scheduler struct {
	job      Job
	interval time.Duration
	minGap   time.Duration
	loc      *time.Location
	now      func() time.Time

	mu          sync.Mutex
	lastSuccess time.Time
	running     bool
	closed      bool
	started     bool
	inflight    sync.WaitGroup

	// Runs use base rather than the caller's context so an HTTP request
	// finishing does not abort the dump it started.
	base   context.Context
	cancel context.CancelFunc

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewScheduler creates a scheduler for job.
func NewScheduler(job Job, opts ...Option) *Scheduler {
	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		job:      job,
		interval: defaultInterval,
		minGap:   defaultMinGap,
		loc:      time.UTC,
		now:      time.Now,
		base:     base,
		cancel:   cancel,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("backup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run checks for a due backup immediately and then on every tick until ctx
// is canceled or Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	started, err := s.Trigger(ctx)
	if err != nil {
		return
	}
	if started {
		s.logger.Info(ctx, "automated backup triggered")
	}
}

// Trigger starts a backup in the background unless one succeeded within the
// minimum gap or one is already running. It reports whether a run started.
func (s *Scheduler) Trigger(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSchedulerClosed
	}
	now := s.now()
	if s.running || (!s.lastSuccess.IsZero() && now.Sub(s.lastSuccess) < s.minGap) {
		return false, nil
	}
	s.running = true
	s.inflight.Add(1)
	go s.execute(now.In(s.loc))
	return true, nil
}

func (s *Scheduler) execute(at time.Time) {
	defer s.inflight.Done()

	start := s.now()
	err := s.job.Run(s.base, at)
	took := s.now().Sub(start)

	s.mu.Lock()
	s.running = false
	if err == nil {
		s.lastSuccess = at
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		metrics.RecordBackupSuccess(took.Seconds(), s.now().Unix())
		s.logger.Info(s.base, "backup completed",
			logger.String("stamp", at.Format(stampLayout)),
			logger.Duration("took", took))
	case errors.Is(err, ErrAlreadyExists):
		metrics.RecordBackup("skipped")
		s.logger.Info(s.base, "backup already exists, skipping",
			logger.String("stamp", at.Format(stampLayout)))
	default:
		metrics.RecordBackup("failure")
		metrics.RecordErrorByType("backup_error", "medium")
		s.logger.Error(s.base, "backup failed",
			logger.String("stamp", at.Format(stampLayout)),
			logger.Error(err))
	}
}

// LastSuccess returns the stamp of the last successful run, zero if none.
func (s *Scheduler) LastSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}

// Wait blocks until no backup is in flight.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// Shutdown stops the ticker loop and waits for an in-flight backup. When ctx
// expires first the backup is canceled.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.shutdown)
	}
	started := s.started
	s.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		if started {
			<-s.done
		}
		s.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
