// Package liveness decides whether the store is currently active from the
// cart and item "last updated" signals and a trailing-window activity count.
package liveness

import (
	"fmt"
	"time"

	"github.com/okian/storepulse/internal/domain/model"
)

// Status is the live activity verdict. Exactly one of ElapsedIdle and
// ActiveIdle is non-zero, except when both legitimately measure zero.
type Status struct {
	LastActive  time.Time
	Source      model.Source
	ElapsedIdle time.Duration
	ActiveIdle  time.Duration
	IsActive    bool
}

// Monitor evaluates liveness. It holds only policy, no state.
type Monitor struct {
	itemThreshold  time.Duration
	cartThreshold  time.Duration
	trailingWindow time.Duration
}

// NewMonitor returns a Monitor with a 20 minute item threshold, a 60 minute
// cart threshold and a 60 minute trailing window unless overridden.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		itemThreshold:  20 * time.Minute,
		cartThreshold:  time.Hour,
		trailingWindow: time.Hour,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TrailingWindow is the length of the recent-activity window.
func (m *Monitor) TrailingWindow() time.Duration {
	return m.trailingWindow
}

// Candidate picks the later of the two signals. Ties and a missing cart
// signal go to the item stream; a missing item signal falls back to the cart.
func Candidate(sig model.ActivitySignals) model.ActivityEvent {
	switch {
	case sig.LastItem.IsZero() && sig.LastCart.IsZero():
		return model.ActivityEvent{Source: model.SourceNone}
	case sig.LastItem.IsZero():
		return model.ActivityEvent{At: sig.LastCart, Source: model.SourceCart}
	case sig.LastCart.After(sig.LastItem):
		return model.ActivityEvent{At: sig.LastCart, Source: model.SourceCart}
	default:
		return model.ActivityEvent{At: sig.LastItem, Source: model.SourceItem}
	}
}

// Evaluate computes the live status at now. All arithmetic is done in UTC.
func (m *Monitor) Evaluate(now time.Time, sig model.ActivitySignals, trailingCount int64) Status {
	now = now.UTC()
	c := Candidate(sig)
	st := Status{LastActive: c.At.UTC(), Source: c.Source}

	if trailingCount > 0 {
		st.IsActive = true
		st.ActiveIdle = m.trailingWindow
		return st
	}
	if c.Source == model.SourceNone {
		return st
	}

	idle := max(now.Sub(st.LastActive), 0)
	threshold := m.cartThreshold
	if c.Source == model.SourceItem {
		threshold = m.itemThreshold
	}
	if idle <= threshold {
		st.IsActive = true
		st.ActiveIdle = idle
		return st
	}
	st.ElapsedIdle = idle
	return st
}

// FormatClock renders d as HH:MM:SS, truncated to whole seconds. Hours are
// not wrapped at 24 and negative durations render as 00:00:00.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
