// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the cache server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"objcache/config"
	"objcache/internal/cache"
	"objcache/internal/document"
	"objcache/internal/export"
	"objcache/internal/observability"
	"objcache/internal/registry"
	"objcache/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	registry *registry.Registry[document.Document]
	recorder *observability.Recorder
	metrics  *prometheus.Registry
	store    export.Store
	exporter *export.Exporter[document.Document]
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is required")
	}

	app := &App{
		config:  cfg,
		metrics: prometheus.NewRegistry(),
	}
	app.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.registry = registry.New[document.Document](
		cfg.Cache.Model,
		document.Hasher{IndexPaths: cfg.Cache.IndexPaths},
		cache.WithWorkers(cfg.Cache.Workers),
	)

	var metricsReg prometheus.Registerer
	if cfg.Metrics.Enabled {
		metricsReg = app.metrics
		app.metrics.MustRegister(observability.NewRegistryCollector(app.registry))
	}
	app.recorder = observability.NewRecorder(cfg.Cache.Model, metricsReg)

	if cfg.Export.Type != "" {
		store, err := export.NewStore(ctx, exportConfig(cfg.Export))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize export store: %w", err)
		}
		app.store = store
		app.exporter = export.NewExporter(app.registry, store, cfg.Export.Compress)
	}

	app.seedTenants(ctx)
	app.logStartupInfo()

	handlerCfg := server.HandlerConfig{
		Registry: app.registry,
		Service:  observability.Instrument[document.Document](app.registry, app.recorder),
		Recorder: app.recorder,
	}
	if app.exporter != nil {
		handlerCfg.Exporter = app.exporter
	}
	app.server = server.New(server.NewHandler(handlerCfg), &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
		Gatherer:        app.metrics,
	})

	if app.exporter != nil && cfg.Export.Interval > 0 {
		app.exporter.Start(time.Duration(cfg.Export.Interval) * time.Second)
	}

	return app, nil
}

// seedTenants registers the configured tenants, importing a stored export
// for each when one exists.
func (a *App) seedTenants(ctx context.Context) {
	for _, tenant := range a.config.Cache.Tenants {
		if a.exporter != nil {
			ok, err := a.exporter.Import(ctx, tenant)
			if err != nil {
				slog.Warn("failed to import tenant cache, starting empty", "tenant", tenant, "error", err)
			}
			if ok {
				continue
			}
		}
		a.registry.CreateCache(tenant)
	}
}

func exportConfig(cfg config.ExportConfig) export.Config {
	return export.Config{
		Type:  cfg.Type,
		Local: export.LocalConfig{Dir: cfg.Local.Dir},
		Redis: export.RedisConfig{
			URL:       cfg.Redis.URL,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Redis.TTL) * time.Second,
		},
		Bolt: export.BoltConfig{
			Path:   cfg.Bolt.Path,
			Bucket: cfg.Bolt.Bucket,
		},
		SQLite: export.SQLiteConfig{Path: cfg.SQLite.Path},
		PostgreSQL: export.PostgreSQLConfig{
			URL:      cfg.PostgreSQL.URL,
			MaxConns: cfg.PostgreSQL.MaxConns,
		},
		MongoDB: export.MongoDBConfig{
			URL:      cfg.MongoDB.URL,
			Database: cfg.MongoDB.Database,
		},
	}
}

// Registry returns the tenant cache registry.
func (a *App) Registry() *registry.Registry[document.Document] {
	return a.registry
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown, honoring the passed context timeout/cancellation.
// 2. Periodic export loop stop.
// 3. Final export of every tenant cache.
// 4. Export store close.
//
// Shutdown is idempotent and safe for repeated calls; after the first call, subsequent calls are no-ops.
// It attempts every step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.exporter != nil {
		// 2. Stop the periodic loop so it cannot race the final export
		a.exporter.Stop()

		// 3. Export every tenant
		if err := a.exporter.ExportAll(ctx); err != nil {
			slog.Error("final export error", "error", err)
			errs = append(errs, fmt.Errorf("final export: %w", err))
		}
	}

	// 4. Close the export store
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("export store close error", "error", err)
			errs = append(errs, fmt.Errorf("export store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("OBJCACHE_MASTER_KEY not set, API is unauthenticated")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("cache registry configured",
		"model", cfg.Cache.Model,
		"tenants", len(a.registry.Tenants()),
		"index_paths", cfg.Cache.IndexPaths,
		"workers", cfg.Cache.Workers,
	)

	if cfg.Export.Type != "" {
		slog.Info("export enabled",
			"type", cfg.Export.Type,
			"compress", cfg.Export.Compress,
			"interval_seconds", cfg.Export.Interval,
		)
	} else {
		slog.Info("export disabled")
	}
}
