package baseline

import "time"

// Option configures a Model.
type Option func(*Model)

// WithRecomputeHook is called after every successful rebuild.
func WithRecomputeHook(fn func(days int, took time.Duration)) Option {
	return func(m *Model) {
		m.onRecompute = fn
	}
}

// WithEmptyHook is called when a rebuild finds no events.
func WithEmptyHook(fn func()) Option {
	return func(m *Model) {
		m.onEmpty = fn
	}
}
