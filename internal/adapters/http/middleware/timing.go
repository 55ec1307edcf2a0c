package middleware

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"scolarite/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
// Screens wait on backend fetches, so it sits above the binding render wait.
const DefaultSlowRequestMs = 2500

var (
	slowRequestOnce sync.Once
	slowRequestMs   float64
)

// slowRequestThreshold reads SCOLARITE_SLOW_REQUEST_MS once.
func slowRequestThreshold() float64 {
	slowRequestOnce.Do(func() {
		slowRequestMs = DefaultSlowRequestMs
		if n, err := strconv.Atoi(os.Getenv("SCOLARITE_SLOW_REQUEST_MS")); err == nil && n > 0 {
			slowRequestMs = float64(n)
		}
	})
	return slowRequestMs
}

// untimed reports paths kept out of request timing.
func untimed(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/metrics" || path == "/healthz"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that logs request duration.
// Static assets, /metrics and /healthz are excluded.
// Normal requests log at DEBUG; slow requests log at WARN.
// If collector is non-nil, entries are recorded for the health endpoint.
func Timing(collector *perf.Collector) func(http.Handler) http.Handler {
	threshold := slowRequestThreshold()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if untimed(path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0
				level := slog.LevelDebug
				msg := "request"
				if durationMs >= threshold {
					level, msg = slog.LevelWarn, "slow_request"
				}
				slog.Log(r.Context(), level, msg,
					"method", r.Method,
					"path", path,
					"status", sw.status,
					"duration_ms", durationMs,
				)

				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       r.Method + " " + path,
						StatusCode: sw.status,
						DurationMs: durationMs,
						Timestamp:  start,
					})
				}

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
