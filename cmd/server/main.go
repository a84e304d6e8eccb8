package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/audit"
	"hostel-portal/internal/auth"
	"hostel-portal/internal/config"
	"hostel-portal/internal/handlers"
	"hostel-portal/internal/metrics"
	"hostel-portal/internal/ratelimit"
	"hostel-portal/internal/services"
	"hostel-portal/internal/session"
	"hostel-portal/internal/storage"
	"hostel-portal/internal/workflow"
)

const pruneInterval = 10 * time.Minute

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	sealer, err := auth.NewSealer(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("session sealer: %w", err)
	}

	m := metrics.New()
	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	client.Observer = m.ObserveUpstream
	set := services.NewSet(client, cfg.BookingStatusMethod)

	sessions := session.NewManager(db, sealer, session.Deps{
		Auth:     set.Auth,
		Profiles: set.Students,
		Logger:   logger,
	})

	rdb := ratelimit.NewRedisClient(ratelimit.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	limiter := ratelimit.New(rdb, ratelimit.Config{
		Capacity:       cfg.RateLimit.Capacity,
		RefillTokens:   cfg.RateLimit.RefillTokens,
		RefillInterval: cfg.RateLimit.RefillInterval,
	}, logger)

	publisher := audit.NewAMQPPublisher(cfg.AMQPURL, cfg.AuditQueue, logger)

	h := handlers.NewHandlers(handlers.Options{
		Sessions:     sessions,
		Services:     set,
		Processor:    workflow.NewProcessor(set.Bookings, publisher, logger),
		Metrics:      m,
		Limiter:      limiter,
		Logger:       logger,
		TemplateDir:  cfg.TemplateDir,
		SecureCookie: cfg.SecureCookie,
		ProfileWait:  cfg.ProfileWait,
	})

	handler, err := protect(cfg, setupRouter(h, cfg.StaticDir, m), logger)
	if err != nil {
		return err
	}

	go prune(ctx, sessions, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "api", cfg.APIBaseURL, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func setupRouter(h *handlers.Handlers, staticDir string, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	h.Mount(r)
	return r
}

// protect adds CSRF checks to every unsafe request. Without TLS the
// requests are marked as plaintext so the referer check is skipped.
func protect(cfg config.Config, next http.Handler, logger *slog.Logger) (http.Handler, error) {
	key, err := csrfKey(cfg.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("csrf key: %w", err)
	}
	if cfg.CSRFKey == "" {
		logger.Warn("CSRF_KEY not set, forms open before a restart will be rejected after it")
	}

	opts := []csrf.Option{
		csrf.Secure(cfg.SecureCookie),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "Forbidden - invalid form token, reload the page and try again", http.StatusForbidden)
		})),
	}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}
	protected := csrf.Protect(key, opts...)(next)

	if cfg.SecureCookie {
		return protected, nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	}), nil
}

func csrfKey(secret string) ([]byte, error) {
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		return sum[:], nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func prune(ctx context.Context, sessions *session.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Prune()
			if err != nil {
				logger.Error("prune sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned sessions", "count", n)
			}
		}
	}
}
