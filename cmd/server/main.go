package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"ibp/internal/inmate/service"
	"ibp/internal/inmate/store"
	"ibp/internal/platform/config"
	"ibp/internal/platform/httpserver"
	"ibp/internal/platform/logger"
	"ibp/internal/platform/metrics"
	"ibp/internal/provider"
	"ibp/internal/provider/fbop"
	"ibp/internal/provider/fetch"
	providermetrics "ibp/internal/provider/metrics"
	"ibp/internal/provider/tdcj"
	httptransport "ibp/internal/transport/http"
	"ibp/internal/warnings"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	st, err := newStore(cfg)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}

	client := fetch.New()
	dispatcher, err := provider.NewDispatcher([]provider.Adapter{
		provider.WithLogging(tdcj.New(client), log),
		provider.WithLogging(fbop.New(client), log),
	}, cfg.ProviderTimeout,
		provider.WithMetrics(providermetrics.New()))
	if err != nil {
		log.Error("dispatcher setup failed", "error", err)
		os.Exit(1)
	}

	svc := service.New(st, dispatcher, cfg.InmatesCacheTTL, cfg.MaxLookups,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()))

	handler := httptransport.New(svc, log, warnings.Config{
		CacheTTL:        cfg.InmatesCacheTTL,
		MinReleaseDays:  cfg.MinReleaseDays,
		MinPostmarkDays: cfg.MinPostmarkDays,
	})
	router := httptransport.NewRouter(handler, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting ibp server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// newStore opens the Postgres store when a database is configured and
// falls back to the in-memory store otherwise.
func newStore(cfg config.Server) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemory(), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}
