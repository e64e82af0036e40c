// Service datasync periodically pulls device telemetry from ThingsBoard
// and persists it into PostgreSQL, provisioning per-device tables on demand.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/StatikElektrik/microservices/internal/config"
	"github.com/StatikElektrik/microservices/internal/datasync"
	"github.com/StatikElektrik/microservices/internal/db"
	"github.com/StatikElektrik/microservices/internal/httpx"
	"github.com/StatikElektrik/microservices/internal/metrics"
	"github.com/StatikElektrik/microservices/internal/models"
	"github.com/StatikElektrik/microservices/internal/registry"
	"github.com/StatikElektrik/microservices/internal/store"
	"github.com/StatikElektrik/microservices/internal/thingsboard"
)

func main() {
	cfg := config.LoadDataSync()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Authenticate with the platform once at startup. A failed login is
	// fatal, not retried per cycle.
	tb := thingsboard.NewClient(
		httpx.NewClient(cfg.ThingsBoard.Timeout, cfg.ThingsBoard.MaxRetries),
		cfg.ThingsBoard,
	)
	if err := tb.Login(ctx); err != nil {
		slog.Error("thingsboard login failed", "url", cfg.ThingsBoard.BaseURL, "error", err)
		os.Exit(1)
	}
	slog.Info("thingsboard session established",
		"url", cfg.ThingsBoard.BaseURL,
		"device_type", cfg.ThingsBoard.DeviceType,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	gateway := store.NewGateway(pool)
	runner := datasync.NewRunner(tb, registry.New(gateway), gateway, datasync.NewAuditStore(pool), m)

	// Start the sync loop via an owner goroutine.
	syncCtx, syncCancel := context.WithCancel(context.Background())
	defer syncCancel()
	go runner.Run(syncCtx, cfg.SyncInterval)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Service: "datasync"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Healthy(r.Context(), pool); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable", Service: "datasync"})
			return
		}
		writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ready", Service: "datasync"})
	})

	r.Handle("/metrics", promhttp.Handler())

	serve(cfg.Base, "datasync", r)
}

func serve(cfg config.Base, service string, handler http.Handler) {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info(service+" listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
