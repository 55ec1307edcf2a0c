// Package web serves the school administration screens: HTML pages rendered
// from the backend's data, each with a JSON twin for non-browser clients.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scolarite/internal/adapters/backend"
	"scolarite/internal/adapters/email"
	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/adapters/http/perf"
	themeStore "scolarite/internal/adapters/storage/theme"
	"scolarite/internal/application/binding"
	"scolarite/internal/domain/session"
	"scolarite/internal/domain/theme"
)

// Deps holds everything the HTTP surface needs.
type Deps struct {
	API            *backend.Client // shared client; per-browser copies add the bearer token
	Sessions       *session.Registry
	Bindings       *binding.Registry
	Local          func(browserID string) session.LocalStorage
	Browser        *middleware.Browser
	Mailer         email.Sender
	ContactTo      string
	GoogleClientID string
	RenderWait     time.Duration
	Collector      *perf.Collector
	Gatherer       prometheus.Gatherer
	Ping           func(ctx context.Context) error // local store health
	CSRFKey        []byte
	Secure         bool
	TrustedOrigins []string
	Limiter        *middleware.RateLimiter
	Version        string
}

type server struct {
	Deps
	pages   pages
	started time.Time
}

// timeNow is a variable for testability.
var timeNow = time.Now

func newServer(d Deps) *server {
	if d.RenderWait <= 0 {
		d.RenderWait = 2 * time.Second
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return &server{Deps: d, pages: parsePages(), started: timeNow()}
}

// NewMux wires HTTP handlers and middleware for the app.
func NewMux(d Deps) http.Handler {
	s := newServer(d)
	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0, time.Minute)
	}
	// Timing -> SecurityHeaders -> RateLimit -> CSRF -> browser -> session -> guard -> mux
	return middleware.Chain(s.handler(),
		middleware.CSRF(d.CSRFKey, d.Secure, d.TrustedOrigins),
		middleware.RateLimit(limiter),
		middleware.SecurityHeaders,
		middleware.Timing(d.Collector),
	)
}

// handler is the routed app behind browser identification and access control.
func (s *server) handler() http.Handler {
	return middleware.Chain(s.routes(),
		middleware.Guard,
		middleware.Session(s.Sessions),
		s.Browser.Identify,
	)
}

// browserToken resolves the browser's current token on every backend call,
// so a binding mounted before a re-login or a registry sweep never sends a stale token.
type browserToken struct {
	sessions *session.Registry
	browser  string
}

func (t browserToken) Token() string {
	return t.sessions.For(context.Background(), t.browser).Token()
}

// apiFor returns a backend client that authenticates as the request's browser.
func (s *server) apiFor(r *http.Request) *backend.Client {
	return s.API.WithTokens(browserToken{sessions: s.Sessions, browser: middleware.BrowserID(r.Context())})
}

func (s *server) themeFor(r *http.Request) *themeStore.Store {
	return themeStore.NewStore(s.Local(middleware.BrowserID(r.Context())))
}

func (s *server) themeMode(r *http.Request) theme.Mode {
	if middleware.BrowserID(r.Context()) == "" {
		return theme.Default
	}
	return s.themeFor(r).Get(r.Context())
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func isHTMLRequest(r *http.Request) bool {
	return middleware.WantsHTML(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err)
	}
}

// authFailed applies the expired-session policy: the browser is signed out,
// its mounted screens are unmounted and it is sent back to the login page.
func (s *server) authFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.BrowserID(ctx)
	if st := middleware.SessionStore(ctx); st != nil {
		if err := st.Logout(ctx); err != nil {
			slog.Warn("logout_failed", "error", err)
		}
	}
	n := s.Bindings.Unmount(id)
	slog.Info("auth_event", "event", "session_rejected", "path", r.URL.Path, "screens_unmounted", n)

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
		return
	}
	s.Browser.SetFlash(w, middleware.Flash{Kind: "error", Text: "Session expirée, veuillez vous reconnecter."})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// healthResponse follows Kubernetes health check conventions.
type healthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]check `json:"checks"`
	Perf      perf.Snapshot    `json:"perf"`
}

type check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]check{"process": {Status: "UP"}}
	status, code := "UP", http.StatusOK
	if s.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			slog.Warn("health_check_failed", "check", "local_store", "error", err)
			checks["local_store"] = check{Status: "DOWN", Message: "Cannot reach local store"}
			status, code = "DOWN", http.StatusServiceUnavailable
		} else {
			checks["local_store"] = check{Status: "UP"}
		}
	}
	writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: timeNow().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Version:   s.Version,
		Checks:    checks,
		Perf:      s.Collector.Snapshot(timeNow().Add(-15*time.Minute), 5),
	})
}

func (s *server) metricsHandler() http.Handler {
	g := s.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
