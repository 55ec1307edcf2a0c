package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scolarite/internal/adapters/http/perf"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// TestTiming_RecordsScreenRequests verifies a screen request is recorded with its status.
func TestTiming_RecordsScreenRequests(t *testing.T) {
	collector := perf.NewCollector(1)
	rr := httptest.NewRecorder()
	Timing(collector)(okHandler(http.StatusSeeOther)).ServeHTTP(rr, httptest.NewRequest("POST", "/notes", nil))

	if rr.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rr.Code)
	}
	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "POST /notes" {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
	if snap.SlowestPaths[0].AvgMs < 0 {
		t.Errorf("AvgMs = %v", snap.SlowestPaths[0].AvgMs)
	}
}

// TestTiming_SkipsUntimedPaths verifies static assets and probes are not recorded.
func TestTiming_SkipsUntimedPaths(t *testing.T) {
	collector := perf.NewCollector(100)
	h := Timing(collector)(okHandler(http.StatusOK))
	for _, p := range []string{"/static/app.css", "/metrics", "/healthz"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}
	if collector.TotalRecorded() != 0 {
		t.Errorf("TotalRecorded = %d, want 0", collector.TotalRecorded())
	}
}

// TestTiming_NilCollector verifies the middleware works without a collector.
func TestTiming_NilCollector(t *testing.T) {
	rr := httptest.NewRecorder()
	Timing(nil)(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTiming_HandlerPanic verifies the entry is still recorded when a handler panics.
func TestTiming_HandlerPanic(t *testing.T) {
	collector := perf.NewCollector(100)
	h := Timing(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/admin", nil))
}

// TestTiming_PoolNoStateLeak verifies pooled writers do not leak status codes.
func TestTiming_PoolNoStateLeak(t *testing.T) {
	collector := perf.NewCollector(100)
	Timing(collector)(okHandler(http.StatusInternalServerError)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/stats", nil))

	rr := httptest.NewRecorder()
	Timing(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})).ServeHTTP(rr, httptest.NewRequest("GET", "/courses", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// BenchmarkTiming measures per-request overhead.
func BenchmarkTiming(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize)
	h := Timing(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/notes", nil)

	b.ReportAllocs()
	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
