package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	lookuphandler "canonreg/internal/lookup/handler"
	lookupmetrics "canonreg/internal/lookup/metrics"
	lookupservice "canonreg/internal/lookup/service"
	migrationengine "canonreg/internal/migration/engine"
	migrationhandler "canonreg/internal/migration/handler"
	migrationmetrics "canonreg/internal/migration/metrics"
	migrationstore "canonreg/internal/migration/store"
	"canonreg/internal/platform/config"
	"canonreg/internal/platform/httpserver"
	"canonreg/internal/platform/logger"
	"canonreg/internal/platform/postgres"
	"canonreg/internal/platform/redis"
	registranthandler "canonreg/internal/registrant/handler"
	registrantmetrics "canonreg/internal/registrant/metrics"
	registrantservice "canonreg/internal/registrant/service"
	registrantstore "canonreg/internal/registrant/store"
	admintoken "canonreg/pkg/platform/middleware/admin"
	"canonreg/pkg/platform/middleware/requestid"
	"canonreg/pkg/platform/middleware/requesttime"
)

// main wires configuration, storage, services, and the HTTP surface. All
// business logic lives in the internal packages; this file only assembles.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			log.Error("registry schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}

	var (
		regStore registrantstore.Store
		migStore migrationstore.Store
	)
	if db != nil {
		regStore = registrantstore.NewPostgres(db)
		migStore = migrationstore.NewPostgres(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		regStore = registrantstore.NewInMemory()
		migStore = migrationstore.NewInMemory(nil, nil)
	}

	registrantSvc, err := registrantservice.New(regStore,
		registrantservice.WithLogger(log),
		registrantservice.WithMetrics(registrantmetrics.New()),
	)
	if err != nil {
		log.Error("failed to build registrant service", "error", err)
		os.Exit(1)
	}

	lookupOpts := []lookupservice.Option{
		lookupservice.WithLogger(log),
		lookupservice.WithMetrics(lookupmetrics.New()),
	}
	if cache != nil {
		lookupOpts = append(lookupOpts, lookupservice.WithCache(cache, config.LookupCacheTTL))
	}
	lookupSvc, err := lookupservice.New(regStore, lookupOpts...)
	if err != nil {
		log.Error("failed to build lookup service", "error", err)
		os.Exit(1)
	}

	migrationEng, err := migrationengine.New(migStore,
		migrationengine.WithLogger(log),
		migrationengine.WithMetrics(migrationmetrics.New()),
	)
	if err != nil {
		log.Error("failed to build migration engine", "error", err)
		os.Exit(1)
	}

	registrantH := registranthandler.New(registrantSvc, log)
	lookupH := lookuphandler.New(lookupSvc, log)
	migrationH := migrationhandler.New(migrationEng, log)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	registrantH.Register(r)
	lookupH.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(admintoken.RequireAdminToken(cfg.AdminToken, log))
		registrantH.RegisterAdmin(r)
		migrationH.Register(r)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(db, cache))

	srv := httpserver.New(cfg.Addr, r)

	log.Info("starting canonreg", "addr", cfg.Addr, "postgres", db != nil, "redis", cache != nil)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("canonreg stopped")
}
