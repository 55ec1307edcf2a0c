package binding

import (
	"log/slog"
	"sync"
	"time"
)

// Key identifies one mounted screen of one browser.
type Key struct {
	Browser string
	Screen  string
}

type closer interface {
	Close()
}

type mounted struct {
	b        closer
	lastUsed time.Time
}

// Registry holds the mounted bindings of every browser.
// INVARIANT: at most one binding per Key
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[Key]*mounted
}

// timeNow is a variable for testability.
var timeNow = time.Now

// NewRegistry creates a registry whose idle entries are unmounted after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{ttl: ttl, entries: make(map[Key]*mounted)}
}

// Mount returns the binding mounted under key, mounting it with mount when absent.
// A binding of another type under the same key is closed and replaced.
func Mount[T any, F comparable](r *Registry, key Key, mount func() *Binding[T, F]) *Binding[T, F] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		if b, ok := e.b.(*Binding[T, F]); ok && !b.isClosed() {
			e.lastUsed = timeNow()
			return b
		}
		e.b.Close()
	}
	b := mount()
	r.entries[key] = &mounted{b: b, lastUsed: timeNow()}
	slog.Debug("binding_mounted", "screen", key.Screen)
	return b
}

// Unmount closes every binding of a browser and returns how many were closed.
func (r *Registry) Unmount(browser string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if k.Browser == browser {
			e.b.Close()
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// UnmountScreen closes one binding, if mounted.
func (r *Registry) UnmountScreen(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		e.b.Close()
		delete(r.entries, key)
	}
}

// Sweep closes bindings idle for longer than the TTL.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := timeNow().Add(-r.ttl)
	n := 0
	for k, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			e.b.Close()
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of mounted bindings.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
