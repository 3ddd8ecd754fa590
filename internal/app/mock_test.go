package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/okian/storepulse/internal/domain/model"
)

// fakeSource is an in-memory DataSource that records its calls.
type fakeSource struct {
	mu sync.Mutex

	dayHours   []model.DayHour
	signals    model.ActivitySignals
	trailing   int64
	hourly     []model.HourCount
	sales      int64
	carts      []model.Cart
	accounts   []model.Account
	purchasers []model.Account
	err        error
	block      bool

	calls           map[string]int
	dayHoursLoc     *time.Location
	hourlyLoc       *time.Location
	hourlyRange     [2]time.Time
	salesRange      [2]time.Time
	cartsRange      [2]time.Time
	accountsRange   [2]time.Time
	purchasersRange [2]time.Time
	trailingSince   time.Time
	itemsSince      time.Time
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: map[string]int{}}
}

func (f *fakeSource) record(op string) error {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
	return f.err
}

func (f *fakeSource) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) DayHourCounts(ctx context.Context, loc *time.Location) ([]model.DayHour, error) {
	f.dayHoursLoc = loc
	if err := f.record("day_hours"); err != nil {
		return nil, err
	}
	return f.dayHours, f.wait(ctx)
}

func (f *fakeSource) LastActiveTimestamps(ctx context.Context, itemsSince time.Time) (model.ActivitySignals, error) {
	f.itemsSince = itemsSince
	if err := f.record("last_active"); err != nil {
		return model.ActivitySignals{}, err
	}
	return f.signals, f.wait(ctx)
}

func (f *fakeSource) TrailingActiveCount(ctx context.Context, since time.Time) (int64, error) {
	f.trailingSince = since
	if err := f.record("trailing"); err != nil {
		return 0, err
	}
	return f.trailing, f.wait(ctx)
}

func (f *fakeSource) HourlyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]model.HourCount, error) {
	f.hourlyRange = [2]time.Time{start, end}
	f.hourlyLoc = loc
	if err := f.record("hourly"); err != nil {
		return nil, err
	}
	return f.hourly, f.wait(ctx)
}

func (f *fakeSource) SalesSumMinorUnits(ctx context.Context, start, end time.Time) (int64, error) {
	f.salesRange = [2]time.Time{start, end}
	if err := f.record("sales"); err != nil {
		return 0, err
	}
	return f.sales, f.wait(ctx)
}

func (f *fakeSource) CartsUpdatedBetween(ctx context.Context, start, end time.Time) ([]model.Cart, error) {
	f.cartsRange = [2]time.Time{start, end}
	if err := f.record("carts"); err != nil {
		return nil, err
	}
	return f.carts, f.wait(ctx)
}

func (f *fakeSource) ActiveAccountsBetween(ctx context.Context, start, end time.Time) ([]model.Account, error) {
	f.accountsRange = [2]time.Time{start, end}
	if err := f.record("accounts"); err != nil {
		return nil, err
	}
	return f.accounts, f.wait(ctx)
}

func (f *fakeSource) PurchasersBetween(ctx context.Context, start, end time.Time) ([]model.Account, error) {
	f.purchasersRange = [2]time.Time{start, end}
	if err := f.record("purchasers"); err != nil {
		return nil, err
	}
	return f.purchasers, f.wait(ctx)
}

func (f *fakeSource) Ping(ctx context.Context) error {
	if err := f.record("ping"); err != nil {
		return err
	}
	return f.wait(ctx)
}

type fakeBackups struct {
	started bool
	err     error
}

func (b *fakeBackups) Trigger(context.Context) (bool, error) {
	return b.started, b.err
}
