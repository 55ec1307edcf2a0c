package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TokenKey is the fixed local storage key holding the session token.
const TokenKey = "token"

// LocalStorage is durable, browser-scoped key/value storage.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Reader is the read-only view of a session handed to every component
// except the login and logout flows.
type Reader interface {
	Current() Session
}

// Store owns one browser's Session. It is the only writer of that Session.
type Store struct {
	mu      sync.RWMutex
	local   LocalStorage
	current Session
}

// Compile-time check that *Store satisfies Reader.
var _ Reader = (*Store)(nil)

// NewStore creates an empty store over the given local storage.
// Call Restore to load a persisted session.
func NewStore(local LocalStorage) *Store {
	return &Store{local: local}
}

// Restore loads the persisted token and decodes it.
// PRE: none
// POST: current session is the decoded token, or empty when the token is absent,
// unreadable or undecodable; a bad token is removed from storage
// INVARIANT: never returns an error to the caller
func (s *Store) Restore(ctx context.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	token, ok, err := s.local.GetItem(ctx, TokenKey)
	if err != nil {
		slog.Warn("session_restore_failed", "error", err)
		return s.current
	}
	if !ok || token == "" {
		return s.current
	}

	id, err := Decode(token)
	if err != nil {
		slog.Info("auth_event", "event", "session_discarded", "reason", err.Error())
		if rmErr := s.local.RemoveItem(ctx, TokenKey); rmErr != nil {
			slog.Warn("session_remove_failed", "error", rmErr)
		}
		return s.current
	}
	s.current = Session{Token: token, Identity: &id}
	return s.current
}

// Login persists a token and replaces the current session with its decoded identity.
// PRE: token was issued by the backend
// POST: on success, storage and memory both hold the new session; on error nothing changed
func (s *Store) Login(ctx context.Context, token string) (Session, error) {
	id, err := Decode(token)
	if err != nil {
		return Session{}, fmt.Errorf("decode token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.local.SetItem(ctx, TokenKey, token); err != nil {
		return Session{}, fmt.Errorf("persist token: %w", err)
	}
	s.current = Session{Token: token, Identity: &id}
	slog.Info("auth_event", "event", "session_started", "subject", id.SubjectID, "role", id.Role)
	return s.current, nil
}

// Logout clears the persisted token and the in-memory session.
// PRE: none
// POST: memory holds no session; storage is cleared unless an error is returned
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}
	if err := s.local.RemoveItem(ctx, TokenKey); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	slog.Info("auth_event", "event", "session_ended")
	return nil
}

// Current returns the current session.
// INVARIANT: Store fields are not mutated
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the current token; satisfies the API client's token source.
func (s *Store) Token() string {
	return s.Current().Token
}

// Registry keeps one Store per browser, restoring it on first use.
type Registry struct {
	mu     sync.Mutex
	open   func(browserID string) LocalStorage
	stores map[string]*registryEntry
}

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// NewRegistry creates a registry that opens local storage per browser with open.
func NewRegistry(open func(browserID string) LocalStorage) *Registry {
	return &Registry{
		open:   open,
		stores: make(map[string]*registryEntry),
	}
}

// For returns the store of a browser, restoring it from storage the first time.
// PRE: browserID is non-empty
// POST: returns a restored Store
func (r *Registry) For(ctx context.Context, browserID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[browserID]; ok {
		e.lastUsed = timeNow()
		return e.store
	}
	st := NewStore(r.open(browserID))
	st.Restore(ctx)
	r.stores[browserID] = &registryEntry{store: st, lastUsed: timeNow()}
	return st
}

// Sweep drops stores idle for longer than idle. They are restored again on next use.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	cutoff := timeNow().Add(-idle)
	for id, e := range r.stores {
		if e.lastUsed.Before(cutoff) {
			delete(r.stores, id)
			dropped++
		}
	}
	return dropped
}
