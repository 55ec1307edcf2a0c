// Package perf keeps a bounded in-memory record of request, backend and
// storage timings for the health endpoint.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota // inbound HTTP request
	KindBackend                  // outbound call to the REST backend
	KindStorage                  // local storage operation
)

// Entry is a single timing record.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /notes", "GET /grade" or "local.GetItem"
	StatusCode int    // 0 when no HTTP status applies or the call never completed
	DurationMs float64
	Timestamp  time.Time
}

// failed reports whether an outbound call ended without a 2xx/3xx response.
func (e Entry) failed() bool {
	return e.Kind == KindBackend && (e.StatusCode == 0 || e.StatusCode >= 400)
}

// Collector is a fixed-size ring buffer of entries.
// When full, the oldest entries are overwritten. Aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64
}

// NewCollector creates a collector holding at most size entries.
// PRE: size > 0, else DefaultRingSize is used
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record stores an entry, overwriting the oldest when full.
// A nil collector ignores the call.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return atomic.LoadInt64(&c.count)
}

// Snapshot is the aggregated view of recent entries.
type Snapshot struct {
	TotalRecorded  int64      `json:"total_recorded"`
	RequestP50Ms   float64    `json:"request_p50_ms"`
	RequestP95Ms   float64    `json:"request_p95_ms"`
	RequestP99Ms   float64    `json:"request_p99_ms"`
	BackendCalls   int        `json:"backend_calls"`
	BackendFailed  int        `json:"backend_failed"`
	SlowestPaths   []PathStat `json:"slowest_paths"`
	SlowestBackend []PathStat `json:"slowest_backend"`
	SlowestStorage []PathStat `json:"slowest_storage"`
}

// PathStat aggregates timings of one path.
type PathStat struct {
	Path    string  `json:"path"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"-"`
}

func (s *PathStat) add(ms float64) {
	s.Count++
	s.TotalMs += ms
	if ms > s.MaxMs {
		s.MaxMs = ms
	}
}

// Snapshot aggregates entries recorded at or after since.
// POST: each top list holds at most topN entries, slowest average first;
// a nil collector yields the zero Snapshot
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var requestDurations []float64
	stats := map[EntryKind]map[string]*PathStat{
		KindRequest: {},
		KindBackend: {},
		KindStorage: {},
	}
	snap := Snapshot{TotalRecorded: c.TotalRecorded()}

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		byPath, ok := stats[e.Kind]
		if !ok {
			continue
		}
		s, ok := byPath[e.Path]
		if !ok {
			s = &PathStat{Path: e.Path}
			byPath[e.Path] = s
		}
		s.add(e.DurationMs)

		switch e.Kind {
		case KindRequest:
			requestDurations = append(requestDurations, e.DurationMs)
		case KindBackend:
			snap.BackendCalls++
			if e.failed() {
				snap.BackendFailed++
			}
		}
	}

	snap.SlowestPaths = topByAvg(stats[KindRequest], topN)
	snap.SlowestBackend = topByAvg(stats[KindBackend], topN)
	snap.SlowestStorage = topByAvg(stats[KindStorage], topN)

	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
		snap.RequestP99Ms = percentile(requestDurations, 99)
	}
	return snap
}

// percentile returns the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the n slowest paths by average duration.
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
