// Package binding keeps the view state of one paginated, filterable list screen
// in sync with its backend collection.
//
// A Binding owns the parameters (page index, page size, filter), the last page of
// items and the fetch lifecycle. Every parameter change starts a new fetch
// generation; only the result of the latest generation is ever applied, and
// superseded fetches have their context cancelled.
package binding

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultPageSize is the page size of a freshly mounted binding.
const DefaultPageSize = 10

// ErrClosed is returned by operations on an unmounted binding.
var ErrClosed = errors.New("binding is closed")

// Status is the fetch status of a binding.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Error
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// Params are the inputs of a fetch.
// INVARIANT: PageIndex >= 0, PageSize > 0
type Params[F comparable] struct {
	PageIndex int // 0-based
	PageSize  int
	Filter    F
}

func (p Params[F]) normalized() Params[F] {
	if p.PageIndex < 0 {
		p.PageIndex = 0
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Page is one page of a collection as returned by a Source.
type Page[T any] struct {
	Items      []T
	TotalCount int
}

// Source reads and deletes items of one backend collection.
type Source[T any, F comparable] interface {
	List(ctx context.Context, p Params[F]) (Page[T], error)
	Delete(ctx context.Context, id string) error
}

// Mutation is one create or update request.
type Mutation func(ctx context.Context) error

// Confirm asks the user whether a destructive action should proceed.
type Confirm func(ctx context.Context) bool

// State is a snapshot of a binding.
// INVARIANT: len(Items) <= Params.PageSize
type State[T any, F comparable] struct {
	Items      []T
	TotalCount int
	Params     Params[F]
	Status     Status
	IsLoading  bool
	LastError  error
}

// PageCount returns the number of pages for TotalCount, at least 1.
func (s State[T, F]) PageCount() int {
	n := (s.TotalCount + s.Params.PageSize - 1) / s.Params.PageSize
	if n < 1 {
		return 1
	}
	return n
}

// Binding is the view state of one mounted list screen.
type Binding[T any, F comparable] struct {
	name string
	src  Source[T, F]

	mu       sync.Mutex
	state    State[T, F]
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	loaded   bool // at least one fetch succeeded
	closed   bool
	base     context.Context
	stopBase context.CancelFunc
}

// New mounts a binding over src and fires the first fetch.
// PRE: src is non-nil
// POST: Status is Loading; a zero PageSize becomes DefaultPageSize
func New[T any, F comparable](name string, src Source[T, F], initial Params[F]) *Binding[T, F] {
	base, stop := context.WithCancel(context.Background())
	b := &Binding[T, F]{
		name:     name,
		src:      src,
		base:     base,
		stopBase: stop,
	}
	b.state.Params = initial.normalized()
	b.mu.Lock()
	b.startLocked()
	b.mu.Unlock()
	return b
}

// startLocked starts a new fetch generation for the current params.
// PRE: b.mu is held; the binding is open
func (b *Binding[T, F]) startLocked() {
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	ctx, cancel := context.WithCancel(b.base)
	done := make(chan struct{})
	b.cancel = cancel
	b.done = done
	b.state.Status = Loading
	b.state.IsLoading = true
	go b.fetch(ctx, gen, b.state.Params, done)
}

func (b *Binding[T, F]) fetch(ctx context.Context, gen uint64, p Params[F], done chan struct{}) {
	defer close(done)
	page, err := b.src.List(ctx, p)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || gen != b.gen {
		slog.Debug("stale_fetch_discarded", "binding", b.name, "generation", gen, "current", b.gen, "error", err)
		return
	}
	b.cancel = nil
	b.state.IsLoading = false

	if err != nil {
		b.state.Status = Error
		b.state.LastError = err
		if !b.loaded {
			b.state.Items = nil
			b.state.TotalCount = 0
		}
		slog.Warn("fetch_failed", "binding", b.name, "generation", gen, "error", err)
		return
	}

	items := page.Items
	if len(items) > p.PageSize {
		slog.Warn("page_truncated", "binding", b.name, "received", len(items), "page_size", p.PageSize)
		items = items[:p.PageSize]
	}
	b.state.Items = append([]T(nil), items...)
	b.state.TotalCount = max(page.TotalCount, 0)
	b.state.Status = Ready
	b.state.LastError = nil
	b.loaded = true
}

// change applies fn to a copy of the params and refetches when they differ.
func (b *Binding[T, F]) change(fn func(p *Params[F])) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	next := b.state.Params
	fn(&next)
	next = next.normalized()
	if next == b.state.Params {
		return nil
	}
	b.state.Params = next
	b.startLocked()
	return nil
}

// SetPage moves to a 0-based page.
func (b *Binding[T, F]) SetPage(index int) error {
	return b.change(func(p *Params[F]) { p.PageIndex = index })
}

// SetPageSize changes the page size and returns to the first page.
func (b *Binding[T, F]) SetPageSize(size int) error {
	return b.change(func(p *Params[F]) {
		if size != p.PageSize {
			p.PageSize = size
			p.PageIndex = 0
		}
	})
}

// SubmitFilter applies a submitted filter and returns to the first page.
func (b *Binding[T, F]) SubmitFilter(f F) error {
	return b.change(func(p *Params[F]) {
		if f != p.Filter {
			p.Filter = f
			p.PageIndex = 0
		}
	})
}

// Refresh refetches at the current params.
func (b *Binding[T, F]) Refresh() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.startLocked()
	return nil
}

// Create issues one create request and refetches once on success.
// POST: on error nothing changed and no refetch happened
func (b *Binding[T, F]) Create(ctx context.Context, m Mutation) error {
	return b.mutate(ctx, "create", m)
}

// Update issues one update request and refetches once on success.
// POST: on error nothing changed and no refetch happened
func (b *Binding[T, F]) Update(ctx context.Context, m Mutation) error {
	return b.mutate(ctx, "update", m)
}

func (b *Binding[T, F]) mutate(ctx context.Context, op string, m Mutation) error {
	if b.isClosed() {
		return ErrClosed
	}
	if err := m(ctx); err != nil {
		slog.Info("mutation_failed", "binding", b.name, "op", op, "error", err)
		return err
	}
	return b.Refresh()
}

// Delete asks confirm first, then deletes id and refetches once.
// POST: declined returns (false, nil) and sends nothing
func (b *Binding[T, F]) Delete(ctx context.Context, id string, confirm Confirm) (bool, error) {
	if b.isClosed() {
		return false, ErrClosed
	}
	if confirm == nil || !confirm(ctx) {
		return false, nil
	}
	if err := b.src.Delete(ctx, id); err != nil {
		slog.Info("mutation_failed", "binding", b.name, "op", "delete", "id", id, "error", err)
		return true, err
	}
	return true, b.Refresh()
}

// Wait blocks until the current generation settles or ctx ends, and returns
// the snapshot at that point. A ctx error is returned alongside a Loading snapshot.
func (b *Binding[T, F]) Wait(ctx context.Context) (State[T, F], error) {
	for {
		b.mu.Lock()
		if b.closed || !b.state.IsLoading {
			s := b.snapshotLocked()
			b.mu.Unlock()
			return s, nil
		}
		done := b.done
		b.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return b.Snapshot(), ctx.Err()
		}
	}
}

// Snapshot returns a copy of the current state.
func (b *Binding[T, F]) Snapshot() State[T, F] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Binding[T, F]) snapshotLocked() State[T, F] {
	s := b.state
	s.Items = append([]T(nil), b.state.Items...)
	return s
}

// Close unmounts the binding, cancelling any in-flight fetch.
// POST: later operations return ErrClosed; Close is idempotent
func (b *Binding[T, F]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.state.IsLoading = false
	if b.state.Status == Loading {
		b.state.Status = Idle
	}
	b.stopBase()
}

func (b *Binding[T, F]) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Column describes one table column of a list screen.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Headers returns the column headers in order.
func Headers[T any](cols []Column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

// Cells renders one item across the columns.
func Cells[T any](cols []Column[T], item T) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Value(item)
	}
	return out
}
