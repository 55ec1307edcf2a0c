package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DSN returns the SQLite data source name for path with WAL mode, a busy
// timeout and normal synchronous writes.
func DSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

// Open opens and pings the SQLite database at path.
// PRE: the modernc.org/sqlite driver is registered
// POST: returns a live pool, or an error
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// InitDB creates the schema.
// PRE: db is a valid database connection
// POST: all tables exist
func InitDB(ctx context.Context, db SQLDB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS local_storage (
		browser_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (browser_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_local_storage_updated ON local_storage(updated_at);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
