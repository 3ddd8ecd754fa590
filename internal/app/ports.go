package service

import (
	"context"
	"time"

	"github.com/okian/storepulse/internal/domain/model"
)

// DataSource is the read-only data access the analytics service consumes.
// Ranges are half-open [start, end) instants; callers derive them from
// business-timezone calendar dates.
type DataSource interface {
	// DayHourCounts returns one (weekday, hour) row per historical event,
	// both taken in loc.
	DayHourCounts(ctx context.Context, loc *time.Location) ([]model.DayHour, error)
	// LastActiveTimestamps returns the latest cart update and the latest
	// item update at or after itemsSince; either may be zero.
	LastActiveTimestamps(ctx context.Context, itemsSince time.Time) (model.ActivitySignals, error)
	// TrailingActiveCount counts carts touched (directly or via an item) at or after since.
	TrailingActiveCount(ctx context.Context, since time.Time) (int64, error)
	// HourlyCounts returns per-hour event counts in [start, end), hours taken in loc.
	HourlyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]model.HourCount, error)
	// SalesSumMinorUnits sums orders completed in [start, end); 0 when none.
	SalesSumMinorUnits(ctx context.Context, start, end time.Time) (int64, error)

	// CartsUpdatedBetween lists carts whose last update falls in [start, end).
	CartsUpdatedBetween(ctx context.Context, start, end time.Time) ([]model.Cart, error)
	// ActiveAccountsBetween lists profiles with a cart or cart item updated in [start, end).
	ActiveAccountsBetween(ctx context.Context, start, end time.Time) ([]model.Account, error)
	// PurchasersBetween lists profiles that placed orders in [start, end), with their order count.
	PurchasersBetween(ctx context.Context, start, end time.Time) ([]model.Account, error)

	Ping(ctx context.Context) error
}

// BackupTrigger starts an on-demand backup. It reports false when a backup
// already ran within the minimum gap.
type BackupTrigger interface {
	Trigger(ctx context.Context) (bool, error)
}
