package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/dispatch"
	"identitypulse/internal/identity/dispatch/elastic"
	"identitypulse/internal/identity/dispatch/indexcache"
	"identitypulse/internal/identity/handler"
	identitymetrics "identitypulse/internal/identity/metrics"
	"identitypulse/internal/identity/service"
	"identitypulse/internal/platform/config"
	"identitypulse/internal/platform/httpserver"
	"identitypulse/internal/platform/logger"
	"identitypulse/internal/platform/metrics"
	"identitypulse/internal/platform/redis"
	"identitypulse/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("identitypulse exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := country.Default()
	if err != nil {
		return fmt.Errorf("load country profiles: %w", err)
	}

	table, err := buildHealthTable(cfg, registry, log)
	if err != nil {
		return err
	}

	identityMetrics := identitymetrics.New()
	httpMetrics := metrics.New()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var cache dispatch.IndexCache = indexcache.NewMemory(cfg.Search.IndexCacheTTL)
	if redisClient != nil {
		defer redisClient.Close()
		cache = indexcache.NewRedis(redisClient.Client, cfg.Search.IndexCacheTTL)
		log.Info("using redis index cache")
	}

	backendCfg := elastic.DefaultConfig()
	backendCfg.MaxIdleConns = cfg.Search.MaxIdleConns
	backendCfg.Username = cfg.Search.BackendUsername
	backendCfg.Password = cfg.Search.BackendPassword

	dispatcher, err := dispatch.New(table,
		dispatch.WithLogger(log),
		dispatch.WithMetrics(identityMetrics),
		dispatch.WithIndexCache(cache),
		dispatch.WithBackendConfig(backendCfg),
		dispatch.WithConfig(dispatch.Config{
			DiscoveryTimeout: cfg.Search.DiscoveryTimeout,
			SearchTimeout:    cfg.Search.SearchTimeout,
			HealthTimeout:    cfg.Search.HealthTimeout,
		}),
	)
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	checker, err := dispatch.NewHealthChecker(dispatcher, cfg.Search.HealthCheckInterval)
	if err != nil {
		return fmt.Errorf("build health checker: %w", err)
	}
	if err := checker.Start(); err != nil {
		return err
	}
	defer checker.Stop()

	svc := service.New(registry, dispatcher,
		service.WithLogger(log),
		service.WithMetrics(identityMetrics),
		service.WithHealthTable(table),
		service.WithHealthChecker(checker),
	)

	router := chi.NewRouter()
	handler.New(svc, log, httpMetrics).Register(router)
	router.Get("/health", healthHandler(redisClient))
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router, handler.RequestTimeout)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting identitypulse",
			"addr", cfg.Addr,
			"mode", string(cfg.Mode),
			"endpoints", len(table.Endpoints()),
			"countries", registry.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildHealthTable resolves the endpoints for the deployment mode. Endpoints
// for countries without a profile are skipped.
func buildHealthTable(cfg config.Server, registry *country.Registry, log *slog.Logger) (*dispatch.HealthTable, error) {
	resolved, err := config.ResolveEndpointsFile(cfg.EndpointsFile, cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoints: %w", err)
	}
	endpoints := make([]dispatch.Endpoint, 0, len(resolved))
	for _, ep := range resolved {
		if _, err := registry.Get(ep.CountryCode); err != nil {
			log.Warn("skipping endpoint for unsupported country", "endpoint", ep.Name, "country", ep.CountryCode)
			continue
		}
		endpoints = append(endpoints, dispatch.Endpoint{
			Name:        ep.Name,
			CountryCode: ep.CountryCode,
			BaseURL:     ep.BaseURL,
			IndexName:   ep.IndexName,
		})
	}
	table, err := dispatch.NewHealthTable(endpoints)
	if err != nil {
		return nil, fmt.Errorf("build health table: %w", err)
	}
	return table, nil
}

func healthHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{"status": "ok"}
		if redisClient != nil {
			resp["redis"] = "ok"
			if err := redisClient.Health(r.Context()); err != nil {
				resp["redis"] = "unavailable"
				resp["status"] = "degraded"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}
