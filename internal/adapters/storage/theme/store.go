package theme

import (
	"context"
	"fmt"
	"log/slog"

	"scolarite/internal/domain/session"
	domain "scolarite/internal/domain/theme"
)

// Store reads and writes a browser's display mode under domain.StorageKey.
// It touches no other key.
type Store struct {
	local session.LocalStorage
}

// NewStore returns a theme store over a browser's local storage.
func NewStore(local session.LocalStorage) *Store {
	return &Store{local: local}
}

// Get returns the stored mode, or domain.Default when absent or unreadable.
// PRE: none
// POST: never fails; read errors are logged
func (s *Store) Get(ctx context.Context) domain.Mode {
	v, ok, err := s.local.GetItem(ctx, domain.StorageKey)
	if err != nil {
		slog.Warn("theme_read_failed", "error", err)
		return domain.Default
	}
	if !ok {
		return domain.Default
	}
	return domain.Parse(v)
}

// Toggle flips and persists the mode.
// POST: returns the new mode; on error the stored mode is unchanged
func (s *Store) Toggle(ctx context.Context) (domain.Mode, error) {
	next := s.Get(ctx).Toggle()
	if err := s.local.SetItem(ctx, domain.StorageKey, string(next)); err != nil {
		return s.Get(ctx), fmt.Errorf("save theme: %w", err)
	}
	return next, nil
}
