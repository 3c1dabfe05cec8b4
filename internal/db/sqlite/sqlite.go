// Package sqlite implements db.Querier on SQLite. Local files go through
// modernc.org/sqlite; libsql:// and wss:// URLs go through the libsql client.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // registers "libsql"
	_ "modernc.org/sqlite"                               // registers "sqlite"
)

const (
	driverSQLite = "sqlite"
	driverLibSQL = "libsql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id            TEXT    PRIMARY KEY,
		original_url  TEXT    NOT NULL CHECK (length(original_url) <= 400),
		short_code    TEXT    NOT NULL CHECK (length(short_code) BETWEEN 1 AND 64),
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL,
		expires_at    INTEGER NOT NULL,
		visit_count   INTEGER NOT NULL DEFAULT 0 CHECK (visit_count >= 0),
		password_hash TEXT,
		CONSTRAINT links_short_code_unique UNIQUE (short_code)
	)`,
	`CREATE TABLE IF NOT EXISTS access_events (
		id          TEXT    PRIMARY KEY,
		short_code  TEXT    NOT NULL REFERENCES links (short_code) ON DELETE CASCADE,
		accessed_at INTEGER NOT NULL,
		ip_address  TEXT    NOT NULL DEFAULT '',
		user_agent  TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS access_events_short_code_accessed_at_idx
		ON access_events (short_code, accessed_at)`,
}

// Open connects to dsn, enables foreign keys and creates the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	driver := driverFor(dsn)
	if driver == driverSQLite {
		dsn = withPragmas(dsn)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	// Writers serialise on a single connection; this also keeps :memory:
	// databases alive for the life of the pool.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return conn, nil
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") {
		return driverLibSQL
	}
	return driverSQLite
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
