package liveness

import "time"

// Option configures a Monitor.
type Option func(*Monitor)

// WithItemThreshold sets how long an item-stream candidate keeps the store active.
func WithItemThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.itemThreshold = d
		}
	}
}

// WithCartThreshold sets how long a cart-stream candidate keeps the store active.
func WithCartThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.cartThreshold = d
		}
	}
}

// WithTrailingWindow sets the recent-activity window length.
func WithTrailingWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.trailingWindow = d
		}
	}
}
