package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"haulgate/internal/app"
	credhandler "haulgate/internal/credential/handler"
	invitehandler "haulgate/internal/invite/handler"
	"haulgate/internal/platform/config"
	"haulgate/internal/platform/health"
	"haulgate/internal/platform/logger"
	request "haulgate/pkg/platform/middleware/request"
	"haulgate/pkg/platform/middleware/requesttime"
)

const (
	maxBodyBytes      = 64 << 10
	poolStatsInterval = 15 * time.Second
)

// main wires the services, serves the HTTP API and shuts down on SIGINT or
// SIGTERM. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel) //nolint:errcheck // validated by Load
	log := logger.New(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing haulgate",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"credential_store", cfg.Credential.Driver,
	)

	services, err := app.New(ctx, cfg, app.Options{Logger: log, Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	if services.Redis != nil {
		go recordPoolStats(ctx, services)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, services, log, prometheus.DefaultRegisterer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newRouter(cfg *config.Config, services *app.App, log *slog.Logger, reg prometheus.Registerer) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Latency(request.NewMetrics(reg)))
	r.Use(requesttime.Middleware)

	probes := health.New(cfg.Server.Environment)
	probes.RegisterCheck("credential_store", services.Credentials.Health)
	probes.RegisterCheck("registry", services.Registry.Health)
	probes.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(request.Timeout(cfg.Server.RequestTimeout))
		api.Use(request.BodyLimit(maxBodyBytes))
		api.Use(request.ContentTypeJSON)
		invitehandler.New(services.Invites, log).Register(api)
		credhandler.New(services.Credentials, log).Register(api)
	})
	return r
}

func recordPoolStats(ctx context.Context, services *app.App) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			services.Redis.RecordPoolStats()
		}
	}
}
