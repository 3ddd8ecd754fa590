package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Backend names a supported SQL database.
type Backend string

const (
	MySQL    Backend = "mysql"
	Postgres Backend = "postgres"
	SQLite   Backend = "sqlite"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case MySQL, Postgres, SQLite:
		return b, nil
	case "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// dialect renders the few date/time expressions whose syntax differs
// between backends. Timestamps are compared as "YYYY-MM-DD HH:MM:SS" UTC
// strings and read back as unix seconds.
type dialect struct {
	backend Backend
	schema  string
}

func (d dialect) quote(ident string) string {
	if d.backend == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// table returns the quoted, optionally schema-qualified table name.
func (d dialect) table(name string) string {
	if d.schema == "" {
		return d.quote(name)
	}
	return d.quote(d.schema) + "." + d.quote(name)
}

// col returns alias.column with the column quoted.
func (d dialect) col(alias, name string) string {
	if alias == "" {
		return d.quote(name)
	}
	return alias + "." + d.quote(name)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d.backend != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// epoch renders expr as integer unix seconds; NULL stays NULL.
func (d dialect) epoch(expr string) string {
	switch d.backend {
	case MySQL:
		return "TIMESTAMPDIFF(SECOND, '1970-01-01 00:00:00', " + expr + ")"
	case Postgres:
		return "CAST(EXTRACT(EPOCH FROM " + expr + ") AS BIGINT)"
	default:
		return "CAST(strftime('%s', " + expr + ") AS INTEGER)"
	}
}

func (d dialect) greatest(a, b string) string {
	if d.backend == SQLite {
		return "MAX(" + a + ", " + b + ")"
	}
	return "GREATEST(" + a + ", " + b + ")"
}

func (d dialect) bigint(expr string) string {
	switch d.backend {
	case MySQL:
		return "CAST(" + expr + " AS SIGNED)"
	case Postgres:
		return "CAST(" + expr + " AS BIGINT)"
	default:
		return "CAST(" + expr + " AS INTEGER)"
	}
}

// timeParam is the placeholder for a string-encoded timestamp; postgres
// needs an explicit cast.
func (d dialect) timeParam() string {
	if d.backend == Postgres {
		return "CAST(? AS TIMESTAMP)"
	}
	return "?"
}

// between restricts expr to the half-open range [?, ?).
func (d dialect) between(expr string) string {
	return expr + " >= " + d.timeParam() + " AND " + expr + " < " + d.timeParam()
}

func (d dialect) timeLiteral(t time.Time) string {
	lit := "'" + formatTime(t) + "'"
	if d.backend == Postgres {
		return "CAST(" + lit + " AS TIMESTAMP)"
	}
	return lit
}
