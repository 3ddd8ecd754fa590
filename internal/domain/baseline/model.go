package baseline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/storepulse/internal/domain/calendar"
)

// Model owns the cached snapshot. The snapshot is rebuilt at most once per
// calendar date and swapped whole; readers never see a partial rebuild.
type Model struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex

	onRecompute func(days int, took time.Duration)
	onEmpty     func()
}

// NewModel returns an empty model; the first GetOrRecompute builds the snapshot.
func NewModel(opts ...Option) *Model {
	m := &Model{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrRecompute returns the cached snapshot when it was computed on today and
// otherwise rebuilds it from feed. Concurrent callers that miss the cache on
// the same date trigger a single feed call. An empty feed is not cached.
func (m *Model) GetOrRecompute(ctx context.Context, today calendar.Date, feed Feed) (*Snapshot, error) {
	if s := m.current.Load(); s != nil && s.ComputedOn == today {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.current.Load(); s != nil && s.ComputedOn == today {
		return s, nil
	}

	start := time.Now()
	events, err := feed(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := Recompute(today, events)
	if err != nil {
		if errors.Is(err, ErrEmptyBaseline) && m.onEmpty != nil {
			m.onEmpty()
		}
		return nil, err
	}
	m.current.Store(snap)
	if m.onRecompute != nil {
		m.onRecompute(len(snap.Days), time.Since(start))
	}
	return snap, nil
}

// Current returns the last computed snapshot, or nil before the first rebuild.
func (m *Model) Current() *Snapshot {
	return m.current.Load()
}

// Query returns the current bucket for day, or a zero bucket if absent.
func (m *Model) Query(day string) DayBucket {
	return m.current.Load().Query(day)
}
