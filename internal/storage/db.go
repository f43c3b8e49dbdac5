// Package storage persists tasks, tags, insights and the tagging history
// over database/sql. SQLite is the default; PostgreSQL shares the same
// queries with rebound placeholders.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects with the given driver and creates the schema if needed.
func Open(driver, dsn string) (*Store, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; concurrent sqlite writers fail with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
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

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

var schemas = map[string]string{
	DriverSQLite: `
	CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		completed    BOOLEAN NOT NULL DEFAULT 0,
		completed_at DATETIME,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at);

	CREATE TABLE IF NOT EXISTS auto_tags (
		task_id          TEXT PRIMARY KEY,
		action_domain    TEXT NOT NULL,
		energy_type      TEXT NOT NULL,
		time_weight      TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		reasoning        TEXT NOT NULL DEFAULT '',
		metadata         TEXT NOT NULL DEFAULT '{}',
		tagged_at        DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS insights (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		period_start    DATETIME NOT NULL,
		period_end      DATETIME NOT NULL,
		insight_text    TEXT NOT NULL,
		insight_type    TEXT NOT NULL,
		position        INTEGER NOT NULL DEFAULT 0,
		supporting_data TEXT NOT NULL DEFAULT '{}',
		viewed          BOOLEAN NOT NULL DEFAULT 0,
		viewed_at       DATETIME,
		created_at      DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_user ON insights(user_id, viewed);

	CREATE TABLE IF NOT EXISTS classification_history (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id          TEXT NOT NULL,
		action_domain    TEXT NOT NULL,
		energy_type      TEXT NOT NULL,
		time_weight      TEXT NOT NULL,
		confidence       REAL NOT NULL,
		method           TEXT NOT NULL DEFAULT '',
		fallback_reason  TEXT NOT NULL DEFAULT '',
		llm_provider     TEXT NOT NULL DEFAULT '',
		llm_model        TEXT NOT NULL DEFAULT '',
		classified_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ch_task ON classification_history(task_id);
	CREATE INDEX IF NOT EXISTS idx_ch_date ON classification_history(classified_at);
	`,
	DriverPostgres: `
	CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at);

	CREATE TABLE IF NOT EXISTS auto_tags (
		task_id          TEXT PRIMARY KEY,
		action_domain    TEXT NOT NULL,
		energy_type      TEXT NOT NULL,
		time_weight      TEXT NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL,
		reasoning        TEXT NOT NULL DEFAULT '',
		metadata         TEXT NOT NULL DEFAULT '{}',
		tagged_at        TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS insights (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		period_start    TIMESTAMPTZ NOT NULL,
		period_end      TIMESTAMPTZ NOT NULL,
		insight_text    TEXT NOT NULL,
		insight_type    TEXT NOT NULL,
		position        INTEGER NOT NULL DEFAULT 0,
		supporting_data TEXT NOT NULL DEFAULT '{}',
		viewed          BOOLEAN NOT NULL DEFAULT FALSE,
		viewed_at       TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_user ON insights(user_id, viewed);

	CREATE TABLE IF NOT EXISTS classification_history (
		id               BIGSERIAL PRIMARY KEY,
		task_id          TEXT NOT NULL,
		action_domain    TEXT NOT NULL,
		energy_type      TEXT NOT NULL,
		time_weight      TEXT NOT NULL,
		confidence       DOUBLE PRECISION NOT NULL,
		method           TEXT NOT NULL DEFAULT '',
		fallback_reason  TEXT NOT NULL DEFAULT '',
		llm_provider     TEXT NOT NULL DEFAULT '',
		llm_model        TEXT NOT NULL DEFAULT '',
		classified_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ch_task ON classification_history(task_id);
	CREATE INDEX IF NOT EXISTS idx_ch_date ON classification_history(classified_at);
	`,
}
