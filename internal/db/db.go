package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/zidesign/catalog/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver identifies the SQL dialect behind a connection.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites Postgres-style $N placeholders for the driver's dialect.
func (d Driver) Rebind(query string) string {
	if d == DriverSQLite {
		return placeholderRe.ReplaceAllString(query, "?")
	}
	return query
}

// ParseDriver validates a configured driver name.
func ParseDriver(name string) (Driver, error) {
	switch Driver(name) {
	case DriverPostgres, "":
		return DriverPostgres, nil
	case DriverSQLite:
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// Open connects to the configured database. SQLite databases get their
// schema applied immediately; Postgres is migrated by `migrate up`.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, Driver, error) {
	driver, err := ParseDriver(cfg.Database.Driver)
	if err != nil {
		return nil, "", err
	}
	if driver == DriverSQLite {
		db, err := OpenSQLite(ctx, cfg.Database.Path)
		return db, driver, err
	}

	db, err := sql.Open(string(DriverPostgres), PostgresURL(cfg))
	if err != nil {
		return nil, "", err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", err
	}

	return db, driver, nil
}

// OpenSQLite opens a SQLite database and applies the schema.
// dsn examples: "catalog.db", "file:catalog.db?cache=shared", ":memory:".
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(DriverSQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and
	// serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

// PostgresURL builds the connection URL shared by the server and migrations.
func PostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Path:   cfg.Database.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    role          TEXT NOT NULL CHECK (role IN ('user', 'admin')),
    avatar        TEXT NOT NULL DEFAULT '',
    bio           TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS works (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL,
    category      TEXT NOT NULL CHECK (category IN ('vectors', 'photos', 'icons', 'psd', 'ai', 'templates')),
    license       TEXT NOT NULL CHECK (license IN ('free', 'personal', 'commercial')),
    tags          TEXT NOT NULL DEFAULT '[]',
    image_url     TEXT NOT NULL DEFAULT '',
    image_key     TEXT NOT NULL DEFAULT '',
    author_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    author_name   TEXT NOT NULL,
    author_avatar TEXT NOT NULL DEFAULT '',
    likes         INTEGER NOT NULL DEFAULT 0,
    downloads     INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_works_status ON works(status);
CREATE INDEX IF NOT EXISTS idx_works_category ON works(category);
CREATE INDEX IF NOT EXISTS idx_works_author ON works(author_id);
`
