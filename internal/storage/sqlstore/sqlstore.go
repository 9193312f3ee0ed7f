// Package sqlstore holds the SQL shared by the SQLite and PostgreSQL backends.
// Queries are written with '?' placeholders and rebound per driver.
package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/julianstephens/dayplan/internal/migration"
)

// timeLayout is fixed width and always UTC so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db          *sql.DB
	placeholder migration.Placeholder
	now         func() time.Time
}

func New(db *sql.DB, placeholder migration.Placeholder) *Store {
	if placeholder == nil {
		placeholder = migration.Question
	}
	return &Store{db: db, placeholder: placeholder, now: time.Now}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) rebind(query string) string {
	if strings.IndexByte(query, '?') < 0 {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
