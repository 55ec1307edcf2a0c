package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"scolarite/internal/adapters/backend"
	emailPkg "scolarite/internal/adapters/email"
	web "scolarite/internal/adapters/http"
	"scolarite/internal/adapters/http/middleware"
	"scolarite/internal/adapters/http/perf"
	"scolarite/internal/adapters/keys"
	"scolarite/internal/adapters/storage"
	"scolarite/internal/adapters/storage/local"
	"scolarite/internal/application/binding"
	"scolarite/internal/config"
	"scolarite/internal/domain/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// sweepInterval is how often idle sessions, screens and rate buckets are dropped.
const sweepInterval = time.Minute

// localRetention is how long an untouched browser's local storage is kept in SQLite.
const localRetention = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := perf.NewCollector(perf.DefaultRingSize)

	store, purge, closeStore, err := openLocalStore(ctx, cfg, collector)
	if err != nil {
		log.Fatalf("failed to open local store: %v", err)
	}
	defer closeStore()

	sealer, err := local.NewSealer(cfg.Secret)
	if err != nil {
		log.Fatalf("failed to create sealer: %v", err)
	}
	openLocal := func(browserID string) session.LocalStorage {
		return local.ForBrowser(store, sealer, browserID)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := backend.New(backend.Options{
		BaseURL:    cfg.APIBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.BackendTimeout},
		Breaker:    backend.NewBreaker("backend", 0),
		Metrics:    backend.NewMetrics(reg),
		Collector:  collector,
	})

	mailer, err := newMailer(cfg)
	if err != nil {
		log.Fatalf("failed to configure email: %v", err)
	}

	sessions := session.NewRegistry(openLocal)
	bindings := binding.NewRegistry(cfg.ViewTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)

	mux := web.NewMux(web.Deps{
		API:            api,
		Sessions:       sessions,
		Bindings:       bindings,
		Local:          openLocal,
		Browser:        middleware.NewBrowser(keys.MustDerive(cfg.Secret, keys.PurposeCookieHash, 32), keys.MustDerive(cfg.Secret, keys.PurposeCookieEnc, 32), cfg.IsProduction()),
		Mailer:         mailer,
		ContactTo:      cfg.ContactTo,
		GoogleClientID: cfg.GoogleClientID,
		RenderWait:     cfg.RenderWait,
		Collector:      collector,
		Gatherer:       reg,
		Ping:           store.Ping,
		CSRFKey:        keys.MustDerive(cfg.Secret, keys.PurposeCSRF, 32),
		Secure:         cfg.IsProduction(),
		Limiter:        limiter,
		Version:        version,
	})

	go sweep(ctx, cfg, sessions, bindings, limiter, purge)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown_failed", "error", err)
		}
	}()

	slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "backend", cfg.APIBaseURL, "local_store", cfg.LocalStore, "email", cfg.EmailProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_stopped")
}

func configureLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(h))
}

// openLocalStore opens the configured per-browser store. purge is nil when
// the store expires entries on its own.
func openLocalStore(ctx context.Context, cfg config.Config, collector *perf.Collector) (local.Store, func(context.Context, time.Time) (int64, error), func(), error) {
	if cfg.LocalStore == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s := local.NewRedisStore(client, "scolarite", local.DefaultRedisTTL)
		if err := s.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		return s, nil, func() { client.Close() }, nil
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	timed := storage.NewTimedDB(db, collector)
	if err := storage.InitDB(ctx, timed); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	s := local.NewSQLiteStore(timed)
	return s, s.PurgeBefore, func() { db.Close() }, nil
}

func newMailer(cfg config.Config) (emailPkg.Sender, error) {
	switch cfg.EmailProvider {
	case "resend":
		return emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom), nil
	case "sendgrid":
		return emailPkg.NewSendGridSender(cfg.SendGridKey, cfg.EmailFrom)
	default:
		if cfg.IsProduction() {
			slog.Warn("email_disabled", "reason", "no provider key set in production")
		}
		return emailPkg.NewNoopSender(), nil
	}
}

// sweep drops idle per-browser state until ctx ends.
func sweep(ctx context.Context, cfg config.Config, sessions *session.Registry, bindings *binding.Registry, limiter *middleware.RateLimiter, purge func(context.Context, time.Time) (int64, error)) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s := sessions.Sweep(cfg.ViewTTL)
		b := bindings.Sweep()
		l := limiter.Prune(10 * time.Minute)
		var purged int64
		if purge != nil {
			n, err := purge(ctx, time.Now().Add(-localRetention))
			if err != nil {
				slog.Warn("local_purge_failed", "error", err)
			}
			purged = n
		}
		if s+b+l > 0 || purged > 0 {
			slog.Debug("sweep", "sessions", s, "screens", b, "rate_buckets", l, "local_rows", purged)
		}
	}
}
