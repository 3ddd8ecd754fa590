package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/storepulse/internal/domain/model"
	"github.com/okian/storepulse/pkg/logger"
	"github.com/okian/storepulse/pkg/metrics"
)

// Guarded wraps a Source with a circuit breaker and per-operation metrics.
// While the breaker is open calls fail fast with ErrBreakerOpen.
type Guarded struct {
	next   Source
	cb     *gobreaker.CircuitBreaker
	name   string
	logger logger.Logger
}

var _ Source = (*Guarded)(nil)

// NewGuarded returns next guarded by a consecutive-failure circuit breaker.
func NewGuarded(next Source, opts ...GuardOption) *Guarded {
	gs := guardSettings{name: "datasource", maxFailures: 5, openTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&gs)
	}

	g := &Guarded{next: next, name: gs.name, logger: logger.Named("breaker")}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        gs.name,
		MaxRequests: 1,
		Timeout:     gs.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= gs.maxFailures
		},
		// The caller giving up is not a database failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			g.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	metrics.UpdateBreakerState(gs.name, int(gobreaker.StateClosed))
	return g
}

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.cb.State()
}

func guard[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	metrics.RecordDatasourceLatency(op, float64(time.Since(start).Microseconds())/1000)

	if err != nil {
		var zero T
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.RecordDatasourceError(op, "breaker_open")
			return zero, fmt.Errorf("%w: %s", ErrBreakerOpen, op)
		case errors.Is(err, context.DeadlineExceeded):
			metrics.RecordDatasourceError(op, "timeout")
		case errors.Is(err, context.Canceled):
			metrics.RecordDatasourceError(op, "canceled")
		default:
			metrics.RecordDatasourceError(op, "query")
		}
		return zero, err
	}
	return v.(T), nil
}

func (g *Guarded) DayHourCounts(ctx context.Context, loc *time.Location) ([]model.DayHour, error) {
	return guard(ctx, g, "day_hour_counts", func(ctx context.Context) ([]model.DayHour, error) {
		return g.next.DayHourCounts(ctx, loc)
	})
}

func (g *Guarded) LastActiveTimestamps(ctx context.Context, itemsSince time.Time) (model.ActivitySignals, error) {
	return guard(ctx, g, "last_active", func(ctx context.Context) (model.ActivitySignals, error) {
		return g.next.LastActiveTimestamps(ctx, itemsSince)
	})
}

func (g *Guarded) TrailingActiveCount(ctx context.Context, since time.Time) (int64, error) {
	return guard(ctx, g, "trailing_count", func(ctx context.Context) (int64, error) {
		return g.next.TrailingActiveCount(ctx, since)
	})
}

func (g *Guarded) HourlyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]model.HourCount, error) {
	return guard(ctx, g, "hourly_counts", func(ctx context.Context) ([]model.HourCount, error) {
		return g.next.HourlyCounts(ctx, start, end, loc)
	})
}

func (g *Guarded) SalesSumMinorUnits(ctx context.Context, start, end time.Time) (int64, error) {
	return guard(ctx, g, "sales_sum", func(ctx context.Context) (int64, error) {
		return g.next.SalesSumMinorUnits(ctx, start, end)
	})
}

func (g *Guarded) CartsUpdatedBetween(ctx context.Context, start, end time.Time) ([]model.Cart, error) {
	return guard(ctx, g, "carts_updated", func(ctx context.Context) ([]model.Cart, error) {
		return g.next.CartsUpdatedBetween(ctx, start, end)
	})
}

func (g *Guarded) ActiveAccountsBetween(ctx context.Context, start, end time.Time) ([]model.Account, error) {
	return guard(ctx, g, "active_accounts", func(ctx context.Context) ([]model.Account, error) {
		return g.next.ActiveAccountsBetween(ctx, start, end)
	})
}

func (g *Guarded) PurchasersBetween(ctx context.Context, start, end time.Time) ([]model.Account, error) {
	return guard(ctx, g, "purchasers", func(ctx context.Context) ([]model.Account, error) {
		return g.next.PurchasersBetween(ctx, start, end)
	})
}

func (g *Guarded) Tables(ctx context.Context) ([]string, error) {
	return guard(ctx, g, "tables", g.next.Tables)
}

// Ping bypasses the breaker so health checks see the real database state.
func (g *Guarded) Ping(ctx context.Context) error {
	start := time.Now()
	err := g.next.Ping(ctx)
	metrics.RecordDatasourceLatency("ping", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordDatasourceError("ping", "query")
	}
	return err
}
