// Package service answers the analytics queries: baseline comparison, live
// status and sales rollups, on top of a DataSource.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/storepulse/internal/domain/baseline"
	"github.com/okian/storepulse/internal/domain/calendar"
	"github.com/okian/storepulse/internal/domain/currency"
	"github.com/okian/storepulse/internal/domain/liveness"
	"github.com/okian/storepulse/internal/domain/model"
	"github.com/okian/storepulse/pkg/logger"
	"github.com/okian/storepulse/pkg/metrics"
)

const (
	// minTodayPurchasers is the number of purchasing accounts under which
	// yesterday's purchasers are appended to the active accounts list.
	minTodayPurchasers = 5

	displayLayout = "2006-01-02 15:04:05"
	hoursPerDay   = 24
)

// Service orchestrates the baseline model, the liveness monitor and the
// calendar resolver over a DataSource.
type Service struct {
	source   DataSource
	baseline *baseline.Model
	monitor  *liveness.Monitor
	backups  BackupTrigger

	loc          *time.Location
	queryTimeout time.Duration
	now          func() time.Time
	startedAt    time.Time

	logger logger.Logger
}

// New constructs a Service over source.
func New(source DataSource, opts ...Option) *Service {
	s := &Service{
		source:       source,
		monitor:      liveness.NewMonitor(),
		loc:          time.UTC,
		queryTimeout: 5 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.baseline == nil {
		s.baseline = baseline.NewModel(
			baseline.WithRecomputeHook(func(days int, took time.Duration) {
				metrics.RecordBaselineRecompute(float64(took.Microseconds())/1000, days)
			}),
			baseline.WithEmptyHook(metrics.RecordBaselineEmpty),
		)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.startedAt = s.now()
	return s
}

// Comparison is today's activity set against the baseline for today's weekday.
// Actual values are raw counts; expected values are normalized to [0,1].
type Comparison struct {
	Day                 string               `json:"actual_day"`
	BaselineAvailable   bool                 `json:"baseline_available"`
	ActualProbability   float64              `json:"actual_probability"`
	ExpectedProbability float64              `json:"expected_probability"`
	ActualBusyHours     baseline.HourProfile `json:"actual_busy_hours"`
	ExpectedBusyHours   baseline.HourProfile `json:"expected_busy_hours"`
}

// BaselineReport is either today's Comparison (Current set) or the whole
// snapshot keyed by weekday name.
type BaselineReport struct {
	Current   *Comparison
	Available bool
	Days      map[string]baseline.DayBucket
}

// GetBaselineComparison returns today's comparison when current is true and
// the full baseline otherwise. No historical data yields an empty report.
func (s *Service) GetBaselineComparison(ctx context.Context, current bool) (BaselineReport, error) {
	now := s.now().In(s.loc)
	today := calendar.DateOf(now)

	snap, err := s.baseline.GetOrRecompute(ctx, today, func(ctx context.Context) ([]model.DayHour, error) {
		var rows []model.DayHour
		err := s.call(ctx, "day_hour_counts", func(ctx context.Context) (err error) {
			rows, err = s.source.DayHourCounts(ctx, s.loc)
			return err
		})
		return rows, err
	})
	switch {
	case errors.Is(err, baseline.ErrEmptyBaseline):
		s.logger.Warn(ctx, "baseline has no historical events yet")
	case err != nil:
		return BaselineReport{}, err
	}

	report := BaselineReport{Available: snap != nil, Days: map[string]baseline.DayBucket{}}
	if snap != nil {
		report.Days = snap.Days
	}
	if !current {
		return report, nil
	}

	var hours []model.HourCount
	start, end := today.Span(s.loc)
	err = s.call(ctx, "hourly_counts", func(ctx context.Context) (err error) {
		hours, err = s.source.HourlyCounts(ctx, start, end, s.loc)
		return err
	})
	if err != nil {
		return BaselineReport{}, err
	}

	cmp := compare(today.Weekday().String(), snap.Query(today.Weekday().String()), hours)
	cmp.BaselineAvailable = report.Available
	report.Current = &cmp
	return report, nil
}

// compare lays today's raw hourly counts over the baseline bucket. Every
// baseline hour appears in the actual profile, zero when idle today.
func compare(day string, expected baseline.DayBucket, hours []model.HourCount) Comparison {
	counts := make(map[int]int64, len(expected.BusyHours)+len(hours))
	for _, b := range expected.BusyHours {
		counts[b.Hour] = 0
	}
	var total int64
	for _, h := range hours {
		if h.Hour < 0 || h.Hour >= hoursPerDay {
			continue
		}
		counts[h.Hour] += h.Count
		total += h.Count
	}

	actual := make(baseline.HourProfile, 0, len(counts))
	for h := 0; h < hoursPerDay; h++ {
		if c, ok := counts[h]; ok {
			actual = append(actual, baseline.HourBucket{Hour: h, Label: baseline.HourLabel(h), Value: float64(c)})
		}
	}

	expectedHours := expected.BusyHours
	if expectedHours == nil {
		expectedHours = baseline.HourProfile{}
	}
	return Comparison{
		Day:                 day,
		ActualProbability:   roundTo4(float64(total) / hoursPerDay),
		ExpectedProbability: expected.Probability,
		ActualBusyHours:     actual,
		ExpectedBusyHours:   expectedHours,
	}
}

// LiveStatus is the presented live activity verdict.
type LiveStatus struct {
	LastActive       string `json:"last_active"`
	LastActiveSource string `json:"last_active_source"`
	ElapsedIdle      string `json:"elapsed_idle"`
	ActiveIdle       string `json:"active_idle"`
	IsActive         bool   `json:"is_active"`
}

// GetLiveStatus evaluates whether the store is active right now.
func (s *Service) GetLiveStatus(ctx context.Context) (LiveStatus, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var sig model.ActivitySignals
	err := s.call(ctx, "last_active", func(ctx context.Context) (err error) {
		sig, err = s.source.LastActiveTimestamps(ctx, startOfDay)
		return err
	})
	if err != nil {
		return LiveStatus{}, err
	}

	var count int64
	err = s.call(ctx, "trailing_count", func(ctx context.Context) (err error) {
		count, err = s.source.TrailingActiveCount(ctx, now.Add(-s.monitor.TrailingWindow()))
		return err
	})
	if err != nil {
		return LiveStatus{}, err
	}

	st := s.monitor.Evaluate(now, sig, count)
	metrics.UpdateStoreActivity(st.IsActive, st.ElapsedIdle.Seconds())

	out := LiveStatus{
		LastActiveSource: string(st.Source),
		ElapsedIdle:      liveness.FormatClock(st.ElapsedIdle),
		ActiveIdle:       liveness.FormatClock(st.ActiveIdle),
		IsActive:         st.IsActive,
	}
	if !st.LastActive.IsZero() {
		out.LastActive = st.LastActive.In(s.loc).Format(displayLayout)
	}
	return out, nil
}

// Sales is the completed-order total of one calendar window.
type Sales struct {
	Window     calendar.Kind `json:"window"`
	StartDate  string        `json:"startDate"`
	EndDate    string        `json:"endDate"`
	TotalSales string        `json:"totalSales"`
}

// GetSales sums completed orders over the window of kind around today.
func (s *Service) GetSales(ctx context.Context, kind calendar.Kind) (Sales, error) {
	w := calendar.Resolve(kind, calendar.DateOf(s.now().In(s.loc)))
	start, end := w.Span(s.loc)

	var minor int64
	err := s.call(ctx, "sales_sum", func(ctx context.Context) (err error) {
		minor, err = s.source.SalesSumMinorUnits(ctx, start, end)
		return err
	})
	if err != nil {
		return Sales{}, err
	}
	metrics.UpdateSalesWindow(string(w.Kind), minor)

	return Sales{
		Window:     w.Kind,
		StartDate:  w.Start.String(),
		EndDate:    w.End.String(),
		TotalSales: currency.FormatUSD(minor),
	}, nil
}

// ActiveCarts lists carts updated today.
func (s *Service) ActiveCarts(ctx context.Context) ([]model.Cart, error) {
	start, end := calendar.DateOf(s.now().In(s.loc)).Span(s.loc)
	var carts []model.Cart
	err := s.call(ctx, "carts_updated", func(ctx context.Context) (err error) {
		carts, err = s.source.CartsUpdatedBetween(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	if carts == nil {
		carts = []model.Cart{}
	}
	return carts, nil
}

// ActiveAccounts lists accounts active today. When fewer than five of them
// purchased today, yesterday's purchasers not already listed are appended.
func (s *Service) ActiveAccounts(ctx context.Context) ([]model.Account, error) {
	today := calendar.DateOf(s.now().In(s.loc))
	start, end := today.Span(s.loc)

	var accounts []model.Account
	err := s.call(ctx, "active_accounts", func(ctx context.Context) (err error) {
		accounts, err = s.source.ActiveAccountsBetween(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(accounts))
	purchasers := 0
	for _, a := range accounts {
		seen[a.ID] = struct{}{}
		if a.NumPurchases > 0 {
			purchasers++
		}
	}
	if purchasers >= minTodayPurchasers {
		return accounts, nil
	}

	var previous []model.Account
	err = s.call(ctx, "purchasers", func(ctx context.Context) (err error) {
		previous, err = s.source.PurchasersBetween(ctx, today.AddDays(-1).In(s.loc), start)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, a := range previous {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		a.RecentlyOrdered = a.NumPurchases > 0
		a.HasCartItems = false
		accounts = append(accounts, a)
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	return accounts, nil
}

// Healthy reports whether the data source answers a ping.
func (s *Service) Healthy(ctx context.Context) bool {
	err := s.call(ctx, "ping", s.source.Ping)
	return err == nil
}

// BackupResult is the outcome of an on-demand backup request.
type BackupResult struct {
	Started bool   `json:"-"`
	Message string `json:"message"`
}

// TriggerBackup asks the backup job to run now.
func (s *Service) TriggerBackup(ctx context.Context) (BackupResult, error) {
	if s.backups == nil {
		return BackupResult{}, ErrBackupDisabled
	}
	started, err := s.backups.Trigger(ctx)
	if err != nil {
		return BackupResult{}, err
	}
	if !started {
		return BackupResult{Message: "Backup skipped. Already performed within the last 2 hours."}, nil
	}
	return BackupResult{Started: true, Message: "Backup process started"}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"uptimeSeconds":     int64(s.now().Sub(s.startedAt).Seconds()),
		"timezone":          s.loc.String(),
		"queryTimeoutMs":    s.queryTimeout.Milliseconds(),
		"baselineAvailable": false,
		"backupsEnabled":    s.backups != nil,
	}
	if snap := s.baseline.Current(); snap != nil {
		stats["baselineAvailable"] = true
		stats["baselineComputedOn"] = snap.ComputedOn.String()
		stats["baselineDays"] = len(snap.Days)
	}
	return stats
}

// call runs fn under the query timeout and folds any failure into
// ErrDataSourceUnavailable.
func (s *Service) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.logger.Error(ctx, "data source call failed", logger.String("operation", op), logger.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrDataSourceUnavailable, op, err)
	}
	return nil
}

func roundTo4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
