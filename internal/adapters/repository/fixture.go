package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/storepulse/pkg/logger"
)

// Rows of the storefront tables the analytics queries read. Zero times and
// empty customer ids are stored as NULL.
type (
	ProfileRow struct {
		ID         int64
		Email      string
		Name       string
		CustomerID string
	}
	CartRow struct {
		ID        int64
		ProfileID int64
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	CartItemRow struct {
		ID        int64
		CartID    int64
		UpdatedAt time.Time
	}
	OrderRow struct {
		ID          int64
		ProfileID   int64
		Status      string
		Amount      int64
		CreatedAt   time.Time
		CompletedAt time.Time
	}
)

// Fixture is a batch of rows loaded in one transaction.
type Fixture struct {
	Profiles  []ProfileRow
	Carts     []CartRow
	CartItems []CartItemRow
	Orders    []OrderRow
}

// Len returns the total number of rows.
func (f Fixture) Len() int {
	return len(f.Profiles) + len(f.Carts) + len(f.CartItems) + len(f.Orders)
}

type column struct {
	name string
	kind string // id, ref, text, time, money
}

var tableColumns = map[string][]column{ //nolint:gochecknoglobals // static table layout
	tableProfiles:  {{"id", "id"}, {"email", "text"}, {"name", "text"}, {"customerId", "text"}},
	tableCarts:     {{"id", "id"}, {"profileId", "ref"}, {"createdAt", "time"}, {"updatedAt", "time"}},
	tableCartItems: {{"id", "id"}, {"cartId", "ref"}, {"updatedAt", "time"}},
	tableOrders:    {{"id", "id"}, {"profileId", "ref"}, {"status", "text"}, {"amount", "money"}, {"createdAt", "time"}, {"completedAt", "time"}},
}

var tableOrder = []string{tableProfiles, tableCarts, tableCartItems, tableOrders} //nolint:gochecknoglobals // creation order

func (d dialect) columnType(kind string) string {
	switch kind {
	case "id":
		if d.backend == SQLite {
			return "INTEGER PRIMARY KEY"
		}
		return "BIGINT PRIMARY KEY"
	case "ref", "money":
		if d.backend == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case "time":
		switch d.backend {
		case MySQL:
			return "DATETIME NULL"
		case Postgres:
			return "TIMESTAMP NULL"
		default:
			return "TEXT"
		}
	default:
		if d.backend == MySQL {
			return "VARCHAR(255) NULL"
		}
		return "TEXT"
	}
}

// CreateSchema creates the storefront tables when they do not exist yet.
// It is meant for local development and demo data, not production
// migrations.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	d := s.dialect
	for _, name := range tableOrder {
		cols := tableColumns[name]
		defs := make([]string, len(cols))
		for i, c := range cols {
			defs[i] = d.quote(c.name) + " " + d.columnType(c.kind)
		}
		q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.table(name), strings.Join(defs, ", "))
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	s.logger.Info(ctx, "schema ready", logger.Int("tables", len(tableOrder)))
	return nil
}

func (d dialect) insert(name string) string {
	cols := tableColumns[name]
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		names[i] = d.quote(c.name)
		params[i] = "?"
		if c.kind == "time" {
			params[i] = d.timeParam()
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.table(name), strings.Join(names, ", "), strings.Join(params, ", "))
	return d.rebind(q)
}

// Load inserts every row of f in a single transaction.
func (s *SQLStore) Load(ctx context.Context, f Fixture) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	d := s.dialect
	exec := func(name string, n int, args func(i int) []any) error {
		if n == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, d.insert(name))
		if err != nil {
			return fmt.Errorf("prepare %s insert: %w", name, err)
		}
		defer stmt.Close()
		for i := 0; i < n; i++ {
			if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
				return fmt.Errorf("insert %s row %d: %w", name, i, err)
			}
		}
		return nil
	}

	if err = exec(tableProfiles, len(f.Profiles), func(i int) []any {
		p := f.Profiles[i]
		return []any{p.ID, p.Email, p.Name, nullString(p.CustomerID)}
	}); err != nil {
		return err
	}
	if err = exec(tableCarts, len(f.Carts), func(i int) []any {
		c := f.Carts[i]
		return []any{c.ID, c.ProfileID, nullTime(c.CreatedAt), nullTime(c.UpdatedAt)}
	}); err != nil {
		return err
	}
	if err = exec(tableCartItems, len(f.CartItems), func(i int) []any {
		ci := f.CartItems[i]
		return []any{ci.ID, ci.CartID, nullTime(ci.UpdatedAt)}
	}); err != nil {
		return err
	}
	if err = exec(tableOrders, len(f.Orders), func(i int) []any {
		o := f.Orders[i]
		return []any{o.ID, o.ProfileID, o.Status, o.Amount, nullTime(o.CreatedAt), nullTime(o.CompletedAt)}
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info(ctx, "fixture loaded", logger.Int("rows", f.Len()))
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}
