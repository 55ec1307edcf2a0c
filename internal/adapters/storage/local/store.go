// Package local persists browser-scoped key/value items: the session token
// and display preferences. Values are sealed before they reach the backend store.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scolarite/internal/domain/session"
)

// Store persists raw items per browser.
type Store interface {
	Get(ctx context.Context, browserID, key string) (string, bool, error)
	Set(ctx context.Context, browserID, key, value string) error
	Delete(ctx context.Context, browserID, key string) error
	Ping(ctx context.Context) error
}

// Browser is the local storage of one browser. It satisfies session.LocalStorage.
type Browser struct {
	store     Store
	sealer    *Sealer
	browserID string
}

var _ session.LocalStorage = (*Browser)(nil)

// ForBrowser returns the local storage of browserID.
// PRE: browserID is non-empty
func ForBrowser(store Store, sealer *Sealer, browserID string) *Browser {
	return &Browser{store: store, sealer: sealer, browserID: browserID}
}

// GetItem returns the item stored under key.
// POST: an item that cannot be unsealed is removed and reported absent
func (b *Browser) GetItem(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := b.store.Get(ctx, b.browserID, key)
	if err != nil || !ok {
		return "", false, err
	}
	plain, err := b.sealer.Open(sealed)
	if errors.Is(err, ErrUnsealable) {
		slog.Warn("local_item_discarded", "key", key)
		if rmErr := b.store.Delete(ctx, b.browserID, key); rmErr != nil {
			slog.Warn("local_item_remove_failed", "key", key, "error", rmErr)
		}
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

// SetItem stores value under key.
func (b *Browser) SetItem(ctx context.Context, key, value string) error {
	sealed, err := b.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return b.store.Set(ctx, b.browserID, key, sealed)
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (b *Browser) RemoveItem(ctx context.Context, key string) error {
	return b.store.Delete(ctx, b.browserID, key)
}
