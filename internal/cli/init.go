// Package cli provides common CLI initialization utilities.
// This package consolidates the wiring shared by cmd/formalizacion and
// cmd/formalizacion-export.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"formalizacion/internal/cache"
	"formalizacion/internal/config"
	"formalizacion/internal/dataset"
	"formalizacion/internal/log"
	"formalizacion/internal/metrics"
	"formalizacion/internal/services"
	"formalizacion/internal/source"
)

// SetupLogger initializes structured logging and sets it as the default logger.
func SetupLogger(level, format string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Format:    format,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App bundles the components every binary wires the same way.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Cell    *dataset.Cell
	Service *services.ReportService
	Caches  *cache.Manager
}

// BuildApp wires source, loader, table cell, report service and cache manager.
func BuildApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	srcCfg, err := source.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	src, err := source.New(ctx, srcCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create data source: %w", err)
	}

	m := metrics.New()
	loader := dataset.NewLoader(src, cfg.Municipality,
		dataset.WithRetryPolicy(dataset.RetryPolicy{
			Attempts:  cfg.FetchAttempts,
			BaseDelay: cfg.FetchBaseDelay,
			MaxDelay:  cfg.FetchMaxDelay,
		}),
		dataset.WithLogger(logger),
		dataset.WithMetrics(m),
	)
	cell := dataset.NewCell(loader)
	svc := services.NewReportService(cell, services.Options{
		Municipality: cfg.Municipality,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
		Logger:       logger,
		Metrics:      m,
	})
	caches := cache.NewManager(logger)
	caches.Register(svc.Caches()...)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Cell:    cell,
		Service: svc,
		Caches:  caches,
	}, nil
}

// Warm loads the base table ahead of the first request.
func (a *App) Warm(ctx context.Context) error {
	start := time.Now()
	t, err := a.Service.Dataset(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("Dataset ready",
		log.FieldOperation, log.OpStartup,
		log.FieldRows, t.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", log.FieldOperation, log.OpShutdown)
		} else {
			logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
