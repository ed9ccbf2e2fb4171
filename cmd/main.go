package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httphandler "grocery-ordering-system/internal/adapters/http"
	"grocery-ordering-system/internal/adapters/storage/file"
	"grocery-ordering-system/internal/adapters/storage/postgres"
	"grocery-ordering-system/internal/adapters/storage/redis"
	"grocery-ordering-system/internal/app"
	"grocery-ordering-system/internal/catalog"
	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/core/ports"
	"grocery-ordering-system/internal/notification"
	"grocery-ordering-system/internal/observability"
)

const serviceName = "grocery-ordering"

func main() {
	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fallbackLogger.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Application starting", "env", cfg.App.Env, "port", cfg.Server.Port)

	// --- 2. Observability ---
	shutdownTracer, err := observability.InitTracer(cfg.Jaeger.Port, serviceName)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to shutdown tracer", "error", err)
		}
	}()

	// --- 3. Dependencies ---
	ctx := context.Background()

	index := loadCatalog(cfg.Catalog, logger)

	ledger, closeLedger, err := openLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.Error("Failed to open order ledger", "driver", cfg.Ledger.Driver, "error", err)
		os.Exit(1)
	}
	defer closeLedger()

	dispatcher, closeChannels, err := notification.NewDispatcherFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to set up notification channels", "error", err)
		os.Exit(1)
	}
	defer closeChannels()
	logger.Info("Notification channels ready", "channels", dispatcher.Channels(), "timeout", cfg.Notification.Timeout())

	// --- 4. Service Layer ---
	orderService := app.NewOrderService(index, ledger, dispatcher, logger)
	orderHandler := httphandler.NewOrderHandler(index, orderService, logger)

	// --- 5. HTTP Router ---
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
		observability.NewLoggerMiddleware(logger),
		observability.NewMetricsMiddleware(serviceName),
		observability.NewTracingMiddleware(serviceName),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]any{
			"status":        "healthy",
			"service":       serviceName,
			"catalog_items": index.Len(),
		}); err != nil {
			logger.Error("Failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if limiter := newRateLimiter(ctx, cfg, logger); limiter != nil {
			r.Use(limiter.Handler)
		}
		r.Get("/items", orderHandler.HandleSearchItems)
		r.Post("/order", orderHandler.HandlePlaceOrder)
	})

	// --- 6. HTTP Server ---
	// WriteTimeout leaves room for the slowest notification channel.
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Notification.Timeout() + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// In-flight orders finish their notifications before the ledger closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Notification.Timeout()+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	logger.Info("Server exited properly")
}

// loadCatalog never fails the startup: without a catalog the service still
// takes orders, priced at 0, and search returns nothing.
func loadCatalog(cfg config.CatalogConfig, logger *slog.Logger) *catalog.Index {
	result, err := catalog.Load(cfg.Path, catalog.Columns{Name: cfg.NameColumn, Price: cfg.PriceColumn})
	if err != nil {
		logger.Error("Catalog unavailable, serving an empty catalog", "path", cfg.Path, "error", fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err))
		return catalog.NewIndex(nil)
	}
	logger.Info("Catalog loaded",
		"path", cfg.Path,
		"items", len(result.Items),
		"skipped_rows", result.Skipped,
		"columns", result.Columns,
	)
	return catalog.NewIndex(result.Items)
}

func openLedger(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (ports.OrderLedger, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.NewLedger(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL ledger")
		return pg, pg.Close, nil
	default:
		l, err := file.OpenLedger(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file ledger", "path", l.Path())
		return l, func() {
			if err := l.Close(); err != nil {
				logger.Warn("Failed to close ledger", "error", err)
			}
		}, nil
	}
}

// newRateLimiter returns nil when Redis is not configured or unreachable.
func newRateLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) *httphandler.RateLimiterMiddleware {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.Warn("Rate limiting disabled", "error", err)
		return nil
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	return httphandler.NewRateLimiterMiddleware(
		redis.NewRateLimiterAdapter(rdb),
		cfg.Redis.RateLimit.Requests,
		time.Duration(cfg.Redis.RateLimit.WindowSeconds)*time.Second,
		logger,
	)
}
