// Package store provides the SQL-backed article, tag and comment store.
// SQLite is the default driver; PostgreSQL is supported through pgx.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// SQLite's LOWER folds ASCII only, so SQLite connections come from a driver
// that registers a Unicode case folding function.
const (
	sqliteDriverName = "sqlite3_folio"
	sqliteFoldFunc   = "folio_fold"
)

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(sc *sqlite3.SQLiteConn) error {
			return sc.RegisterFunc(sqliteFoldFunc, foldCase, true)
		},
	})
}

// foldCase matches the folding used by query.Match.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		title           TEXT NOT NULL,
		author          TEXT NOT NULL,
		body            TEXT NOT NULL DEFAULT '',
		source_path     TEXT UNIQUE,
		source_checksum TEXT,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS article_tags (
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		tag_id     INTEGER NOT NULL REFERENCES tags(id),
		PRIMARY KEY (article_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		author     TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id, created_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id              BIGSERIAL PRIMARY KEY,
		title           TEXT NOT NULL,
		author          TEXT NOT NULL,
		body            TEXT NOT NULL DEFAULT '',
		source_path     TEXT UNIQUE,
		source_checksum TEXT,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS article_tags (
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		tag_id     BIGINT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (article_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         BIGSERIAL PRIMARY KEY,
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		author     TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id, created_at)`,
}

// Config selects the driver and connection string.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// DB wraps a sql.DB with article-store operations.
type DB struct {
	conn
	sql *sql.DB
}

// Open opens (or creates) the database and applies the schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		driverName = driver
		dsn        string
		schema     []string
	)
	switch driver {
	case DriverSQLite:
		driverName = sqliteDriverName
		dsn = sqliteDSN(cfg.DSN)
		schema = sqliteSchema
	case DriverPostgres:
		dsn = cfg.DSN
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	for _, stmt := range schema {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("store: apply schema: %w", err)
		}
	}
	return &DB{conn: conn{q: sqlDB, postgres: driver == DriverPostgres}, sql: sqlDB}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// sqliteDSN enables WAL, a busy timeout, foreign keys and immediate write
// transactions so concurrent writers queue instead of failing.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn carries the operations shared by DB and Tx.
type conn struct {
	q        querier
	postgres bool
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (c conn) rebind(query string) string {
	if !c.postgres {
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

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.rebind(query), args...)
}
