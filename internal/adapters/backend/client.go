// Package backend is the HTTP client of the school REST backend.
//
// Every request carries the browser's session token as a bearer credential.
// The client reports failures as *fault.Error and never touches the session
// itself: callers decide what an authentication failure means.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"scolarite/internal/adapters/http/perf"
	"scolarite/internal/domain/fault"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// TokenSource yields the current session token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token() string { return string(s) }

// Metrics are the Prometheus instruments of the client.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates and registers the client instruments on reg.
// PRE: reg is non-nil; instruments are not yet registered on it
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scolarite",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend requests by method, route and outcome.",
		}, []string{"method", "route", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scolarite",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *Metrics) observe(method, route, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, outcome).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// NewBreaker returns the circuit breaker guarding backend calls.
// It opens after 3 consecutive transport or 5xx failures.
func NewBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Breaker    *gobreaker.CircuitBreaker
	Metrics    *Metrics
	Collector  *perf.Collector
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	base      string
	hc        *http.Client
	cb        *gobreaker.CircuitBreaker
	metrics   *Metrics
	collector *perf.Collector
	tokens    TokenSource
}

// New creates a client without a token source.
// PRE: opts.BaseURL is an absolute URL
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	cb := opts.Breaker
	if cb == nil {
		cb = NewBreaker("backend", 0)
	}
	return &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		hc:        hc,
		cb:        cb,
		metrics:   opts.Metrics,
		collector: opts.Collector,
	}
}

// WithTokens returns a copy of c that authenticates with ts.
// The copy shares transport, breaker and metrics with c.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// call describes one backend request.
type call struct {
	method string
	path   string // concrete path, e.g. /user/42
	route  string // templated path for metrics, e.g. /user/:id
	query  url.Values
	body   any
}

type response struct {
	status int
	body   []byte
}

// errStatus marks a 5xx so the breaker counts it as a failure.
type errStatus struct{ status int }

func (e errStatus) Error() string { return fmt.Sprintf("backend status %d", e.status) }

// do sends a call and decodes a 2xx body into out when out is non-nil.
// POST: any failure is a *fault.Error, except context cancellation which is returned as is
func (c *Client) do(ctx context.Context, cl call, out any) error {
	if cl.route == "" {
		cl.route = cl.path
	}
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", cl.method, cl.route, err)
	}

	start := time.Now()
	var res response
	_, err = c.cb.Execute(func() (any, error) {
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		res = response{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 500 {
			return nil, errStatus{status: resp.StatusCode}
		}
		return nil, nil
	})
	elapsed := time.Since(start)
	c.record(cl, res.status, elapsed)

	var se errStatus
	switch {
	case err == nil, errors.As(err, &se):
	case ctx.Err() != nil:
		c.metrics.observe(cl.method, cl.route, "canceled", elapsed)
		return ctx.Err()
	default:
		c.metrics.observe(cl.method, cl.route, "network", elapsed)
		slog.Warn("backend_unreachable", "method", cl.method, "route", cl.route, "error", err)
		return fault.Network(err)
	}

	if res.status >= 300 {
		fe := decodeError(res)
		c.metrics.observe(cl.method, cl.route, string(fe.Kind), elapsed)
		slog.Info("backend_error", "method", cl.method, "route", cl.route, "status", res.status, "kind", fe.Kind)
		return fe
	}
	c.metrics.observe(cl.method, cl.route, "ok", elapsed)
	slog.Debug("backend_request", "method", cl.method, "route", cl.route, "status", res.status, "duration_ms", elapsed.Milliseconds())

	if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return &fault.Error{Kind: fault.KindServer, Status: res.status, Message: "Réponse du serveur illisible", Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	u := c.base + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) record(cl call, status int, d time.Duration) {
	c.collector.Record(perf.Entry{
		Kind:       perf.KindBackend,
		Path:       cl.method + " " + cl.route,
		StatusCode: status,
		DurationMs: float64(d.Microseconds()) / 1000.0,
		Timestamp:  time.Now().Add(-d),
	})
}

// decodeError maps a non-2xx response to a fault.
func decodeError(res response) *fault.Error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(res.body, &body) == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(res.status)
	}
	return fault.New(fault.KindFromStatus(res.status), res.status, msg)
}

// pathID escapes an identifier for use as a path segment.
func pathID(id string) string {
	return url.PathEscape(id)
}
