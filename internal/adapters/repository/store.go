// Package repository reads the order-taking database (carts, cart items,
// orders and profiles) over MySQL, PostgreSQL or SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/okian/storepulse/internal/domain/model"
	"github.com/okian/storepulse/pkg/logger"
)

const (
	tableCarts     = "carts"
	tableCartItems = "cartItems"
	tableOrders    = "orders"
	tableProfiles  = "profiles"

	timeLayout      = "2006-01-02 15:04:05"
	statusCompleted = "COMPLETED"
)

// Source is the full set of reads the service performs. Timestamps are
// stored in UTC; ranges are half-open [start, end) instants and weekday or
// hour buckets are taken in the caller's location.
type Source interface {
	DayHourCounts(ctx context.Context, loc *time.Location) ([]model.DayHour, error)
	LastActiveTimestamps(ctx context.Context, itemsSince time.Time) (model.ActivitySignals, error)
	TrailingActiveCount(ctx context.Context, since time.Time) (int64, error)
	HourlyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]model.HourCount, error)
	SalesSumMinorUnits(ctx context.Context, start, end time.Time) (int64, error)
	CartsUpdatedBetween(ctx context.Context, start, end time.Time) ([]model.Cart, error)
	ActiveAccountsBetween(ctx context.Context, start, end time.Time) ([]model.Account, error)
	PurchasersBetween(ctx context.Context, start, end time.Time) ([]model.Account, error)
	Tables(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

var _ Source = (*SQLStore)(nil)

// SQLStore is a pooled, read-only Source over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  logger.Logger
}

// Open connects to the configured backend, applies pool limits and pings.
func Open(ctx context.Context, cfg Config, opts ...Option) (*SQLStore, error) {
	backend, err := ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch backend {
	case MySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		connector, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, fmt.Errorf("mysql connector: %w", err)
		}
		db = sql.OpenDB(connector)
	case Postgres:
		pc, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		db = stdlib.OpenDB(*pc)
	case SQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
		}
	}

	if backend == SQLite {
		// One connection keeps an in-memory database alive and avoids "database is locked".
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", backend, err)
	}

	s := &SQLStore{db: db, dialect: dialect{backend: backend, schema: cfg.Schema}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("repository")
	}
	s.logger.Info(ctx, "database connected", logger.String("backend", string(backend)), logger.String("schema", cfg.Schema))
	return s, nil
}

// Backend reports which database the store talks to.
func (s *SQLStore) Backend() Backend {
	return s.dialect.backend
}

// DB exposes the pool, mostly for tests and migrations run by operators.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DayHourCounts returns the weekday and hour, in loc, of every cart update.
func (s *SQLStore) DayHourCounts(ctx context.Context, loc *time.Location) ([]model.DayHour, error) {
	d := s.dialect
	updated := d.col("", "updatedAt")
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL",
		d.epoch(updated), d.table(tableCarts), updated)

	rows, err := s.db.QueryContext(ctx, d.rebind(q))
	if err != nil {
		return nil, fmt.Errorf("query day/hour counts: %w", err)
	}
	defer rows.Close()

	var out []model.DayHour
	for rows.Next() {
		var v sql.NullInt64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan day/hour row: %w", err)
		}
		if !v.Valid {
			continue
		}
		t := fromUnix(v).In(loc)
		out = append(out, model.DayHour{Day: t.Weekday().String(), Hour: t.Hour()})
	}
	return out, rows.Err()
}

// LastActiveTimestamps returns the latest cart update and the latest item
// update at or after itemsSince.
func (s *SQLStore) LastActiveTimestamps(ctx context.Context, itemsSince time.Time) (model.ActivitySignals, error) {
	d := s.dialect
	var sig model.ActivitySignals

	cartQ := fmt.Sprintf("SELECT %s FROM %s", d.epoch("MAX("+d.col("", "updatedAt")+")"), d.table(tableCarts))
	var cart sql.NullInt64
	if err := s.db.QueryRowContext(ctx, d.rebind(cartQ)).Scan(&cart); err != nil {
		return sig, fmt.Errorf("query last cart update: %w", err)
	}

	itemQ := fmt.Sprintf("SELECT %s FROM %s ci JOIN %s c ON %s = %s WHERE %s >= %s",
		d.epoch("MAX("+d.col("ci", "updatedAt")+")"),
		d.table(tableCartItems), d.table(tableCarts),
		d.col("ci", "cartId"), d.col("c", "id"),
		d.col("ci", "updatedAt"), d.timeParam())
	var item sql.NullInt64
	if err := s.db.QueryRowContext(ctx, d.rebind(itemQ), formatTime(itemsSince)).Scan(&item); err != nil {
		return sig, fmt.Errorf("query last item update: %w", err)
	}

	sig.LastCart = fromUnix(cart)
	sig.LastItem = fromUnix(item)
	return sig, nil
}

// TrailingActiveCount counts carts touched, directly or through one of
// their items, at or after since.
func (s *SQLStore) TrailingActiveCount(ctx context.Context, since time.Time) (int64, error) {
	d := s.dialect
	touched := d.greatest(d.col("c", "updatedAt"), "COALESCE("+d.col("ci", "updatedAt")+", "+d.timeLiteral(time.Unix(0, 0))+")")
	q := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s c LEFT JOIN %s ci ON %s = %s WHERE %s >= %s",
		d.col("c", "id"), d.table(tableCarts), d.table(tableCartItems),
		d.col("c", "id"), d.col("ci", "cartId"), touched, d.timeParam())

	var n int64
	if err := s.db.QueryRowContext(ctx, d.rebind(q), formatTime(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("query trailing activity: %w", err)
	}
	return n, nil
}

// HourlyCounts counts cart updates in [start, end) per hour of the day in
// loc, ordered by hour. Idle hours are omitted.
func (s *SQLStore) HourlyCounts(ctx context.Context, start, end time.Time, loc *time.Location) ([]model.HourCount, error) {
	d := s.dialect
	updated := d.col("", "updatedAt")
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		d.epoch(updated), d.table(tableCarts), d.between(updated))

	rows, err := s.db.QueryContext(ctx, d.rebind(q), formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query hourly counts: %w", err)
	}
	defer rows.Close()

	var counts [24]int64
	for rows.Next() {
		var v sql.NullInt64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan hourly row: %w", err)
		}
		if v.Valid {
			counts[fromUnix(v).In(loc).Hour()]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []model.HourCount
	for h, n := range counts {
		if n > 0 {
			out = append(out, model.HourCount{Hour: h, Count: n})
		}
	}
	return out, nil
}

// SalesSumMinorUnits sums the amount of completed orders whose completion
// instant lies in [start, end).
func (s *SQLStore) SalesSumMinorUnits(ctx context.Context, start, end time.Time) (int64, error) {
	d := s.dialect
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s",
		d.bigint("COALESCE(SUM("+d.col("", "amount")+"), 0)"), d.table(tableOrders),
		d.col("", "status"), d.between(d.col("", "completedAt")))

	var total int64
	if err := s.db.QueryRowContext(ctx, d.rebind(q), statusCompleted, formatTime(start), formatTime(end)).Scan(&total); err != nil {
		return 0, fmt.Errorf("query sales sum: %w", err)
	}
	return total, nil
}

// CartsUpdatedBetween lists carts last updated in [start, end).
func (s *SQLStore) CartsUpdatedBetween(ctx context.Context, start, end time.Time) ([]model.Cart, error) {
	d := s.dialect
	q := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s ORDER BY %s",
		d.col("", "profileId"), d.epoch(d.col("", "createdAt")), d.epoch(d.col("", "updatedAt")),
		d.table(tableCarts), d.between(d.col("", "updatedAt")), d.col("", "updatedAt"))

	rows, err := s.db.QueryContext(ctx, d.rebind(q), formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query carts: %w", err)
	}
	defer rows.Close()

	var out []model.Cart
	for rows.Next() {
		var (
			c                model.Cart
			created, updated sql.NullInt64
		)
		if err := rows.Scan(&c.ProfileID, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		c.CreatedAt = fromUnix(created)
		c.UpdatedAt = fromUnix(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveAccountsBetween lists profiles with a cart or a cart item updated in
// [start, end), with their order count over the range and whether they
// touched cart items.
func (s *SQLStore) ActiveAccountsBetween(ctx context.Context, start, end time.Time) ([]model.Account, error) {
	d := s.dialect
	carts, items, orders, profiles := d.table(tableCarts), d.table(tableCartItems), d.table(tableOrders), d.table(tableProfiles)
	pid := d.col("p", "id")

	q := fmt.Sprintf(`SELECT %[1]s, %[2]s, %[3]s, %[4]s,
	(SELECT COUNT(*) FROM %[5]s o WHERE %[6]s = %[1]s AND %[7]s),
	(SELECT COUNT(*) FROM %[8]s ci JOIN %[9]s c ON %[10]s = %[11]s WHERE %[12]s = %[1]s AND %[13]s)
FROM %[14]s p
WHERE %[1]s IN (
	SELECT %[12]s FROM %[9]s c WHERE %[15]s
	UNION
	SELECT %[12]s FROM %[9]s c JOIN %[8]s ci ON %[10]s = %[11]s WHERE %[13]s
)
ORDER BY %[1]s`,
		pid, d.col("p", "email"), d.col("p", "name"), d.col("p", "customerId"),
		orders, d.col("o", "profileId"), d.between(d.col("o", "createdAt")),
		items, carts, d.col("ci", "cartId"), d.col("c", "id"), d.col("c", "profileId"), d.between(d.col("ci", "updatedAt")),
		profiles, d.between(d.col("c", "updatedAt")))

	from, to := formatTime(start), formatTime(end)
	rows, err := s.db.QueryContext(ctx, d.rebind(q), from, to, from, to, from, to, from, to)
	if err != nil {
		return nil, fmt.Errorf("query active accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var (
			a                     model.Account
			email, name, customer sql.NullString
			itemCount             int64
		)
		if err := rows.Scan(&a.ID, &email, &name, &customer, &a.NumPurchases, &itemCount); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		a.Email, a.Name, a.CustomerID = email.String, name.String, customer.String
		a.RecentlyOrdered = a.NumPurchases > 0
		a.HasCartItems = itemCount > 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// PurchasersBetween lists profiles that placed orders in [start, end) with
// their order count.
func (s *SQLStore) PurchasersBetween(ctx context.Context, start, end time.Time) ([]model.Account, error) {
	d := s.dialect
	pid, email, name, customer := d.col("p", "id"), d.col("p", "email"), d.col("p", "name"), d.col("p", "customerId")
	q := fmt.Sprintf("SELECT %s, %s, %s, %s, COUNT(*) FROM %s o JOIN %s p ON %s = %s WHERE %s GROUP BY %s, %s, %s, %s ORDER BY %s",
		pid, email, name, customer,
		d.table(tableOrders), d.table(tableProfiles), d.col("o", "profileId"), pid,
		d.between(d.col("o", "createdAt")),
		pid, email, name, customer, pid)

	rows, err := s.db.QueryContext(ctx, d.rebind(q), formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query purchasers: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var (
			a            model.Account
			em, nm, cust sql.NullString
		)
		if err := rows.Scan(&a.ID, &em, &nm, &cust, &a.NumPurchases); err != nil {
			return nil, fmt.Errorf("scan purchaser row: %w", err)
		}
		a.Email, a.Name, a.CustomerID = em.String, nm.String, cust.String
		a.RecentlyOrdered = a.NumPurchases > 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// Tables lists the tables of the current database or schema.
func (s *SQLStore) Tables(ctx context.Context) ([]string, error) {
	var q string
	switch s.dialect.backend {
	case MySQL:
		q = "SHOW TABLES"
	case Postgres:
		q = "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name"
	default:
		q = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fromUnix(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}
