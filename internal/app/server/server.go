package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"retentiond/internal/db"
	"retentiond/internal/domain/audit"
	"retentiond/internal/domain/erasure"
	"retentiond/internal/domain/notice"
	"retentiond/internal/domain/policy"
	"retentiond/internal/domain/purge"
	"retentiond/internal/domain/schedule"
	"retentiond/internal/platform/config"
	"retentiond/internal/platform/email"
	"retentiond/internal/platform/jobs"
	"retentiond/internal/platform/metrics"
	"retentiond/internal/transport/http/api"
	retentionhandler "retentiond/internal/transport/http/handlers/retention"
	"retentiond/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	catalog, err := policy.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("catalog load failed: %v", err)
	}
	registry, err := policy.NewRegistry(catalog.Policies, catalog.Sources)
	if err != nil {
		log.Fatalf("catalog invalid: %v", err)
	}

	sched := scheduleFromConfig(cfg)
	if err := sched.Validate(); err != nil {
		log.Fatalf("schedule invalid: %v", err)
	}

	key, err := purge.DeriveAnonymizationKey([]byte(cfg.AnonymizationKey))
	if err != nil {
		log.Fatalf("anonymization key derivation failed: %v", err)
	}

	overrides := policy.NewPgOverrideStore(pool, registry)
	store := purge.NewPgStore(pool)
	store.StatementTimeout = cfg.StatementTimeout
	collector := metrics.New()

	engine := purge.NewEngine(registry, overrides, store)
	engine.Runs = purge.NewPgRunStore(pool)
	engine.Metrics = collector
	engine.Schedule = &sched
	engine.AnonymizationKey = key
	engine.BatchPause = cfg.BatchPause

	auditSvc := audit.New(pool)
	erasureSvc := erasure.NewService(registry, store, auditSvc, key)
	erasureSvc.BatchLimit = cfg.ErasureBatchLimit

	noticeSvc := notice.NewService(notice.NewPgContactResolver(pool), email.New(cfg))

	jobsSvc := jobs.New(engine, sched)
	if err := jobsSvc.Start(ctx); err != nil {
		log.Fatalf("scheduler start failed: %v", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recover)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireOperator(cfg.JWTSecret))

		handler := retentionhandler.NewHandler(engine, erasureSvc, jobsSvc, auditSvc, collector, sched)
		handler.Notice = noticeSvc
		handler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
	}()

	slog.Info("retention server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}

func scheduleFromConfig(cfg config.Config) schedule.Config {
	sched := schedule.Default()
	sched.DailyCron = cfg.DailyCron
	sched.WeeklyCron = cfg.WeeklyCron
	sched.MonthlyCron = cfg.MonthlyCron
	sched.QuarterlyCron = cfg.QuarterlyCron
	sched.GraceCleanupCron = cfg.GraceCleanupCron
	return sched
}
