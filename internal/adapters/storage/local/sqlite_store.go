package local

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"scolarite/internal/adapters/storage"
)

// SQLiteStore implements Store on the local_storage table.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore returns a store over db.
// PRE: storage.InitDB has run on db
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the raw value of a browser's key.
func (s *SQLiteStore) Get(ctx context.Context, browserID, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(storage.WithOp(ctx, "local.Get"),
		`SELECT value FROM local_storage WHERE browser_id = ? AND key = ?`, browserID, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set upserts a browser's key.
func (s *SQLiteStore) Set(ctx context.Context, browserID, key, value string) error {
	_, err := s.db.ExecContext(storage.WithOp(ctx, "local.Set"),
		`INSERT INTO local_storage (browser_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(browser_id, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		browserID, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Delete removes a browser's key.
func (s *SQLiteStore) Delete(ctx context.Context, browserID, key string) error {
	_, err := s.db.ExecContext(storage.WithOp(ctx, "local.Delete"),
		`DELETE FROM local_storage WHERE browser_id = ? AND key = ?`, browserID, key)
	return err
}

// PurgeBefore removes items not written since cutoff and returns how many went.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(storage.WithOp(ctx, "local.Purge"),
		`DELETE FROM local_storage WHERE updated_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Ping checks the database.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
