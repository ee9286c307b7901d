package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"formalizacion/internal/cli"
	apphttp "formalizacion/internal/http"
	"formalizacion/internal/log"
	"formalizacion/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info", "text")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	app, err := cli.BuildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, log.FieldSource, cfg.DataSource)
		os.Exit(1)
	}
	app.Caches.StartCleanup(5 * time.Minute)

	proxies, err := ratelimit.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("Invalid trusted proxies", log.FieldError, err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, app.Service, apphttp.Options{
		Logger:  logger,
		Metrics: app.Metrics,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		ClientIP: ratelimit.BehindProxies(proxies),
		WriteTimeout: cfg.FetchTimeout * time.Duration(cfg.FetchAttempts+1),
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		app.Caches.Stop()
	})

	if cfg.WarmOnStart {
		go func() {
			if err := app.Warm(ctx); err != nil {
				logger.Warn("Initial dataset load failed, retrying on first request",
					log.FieldOperation, log.OpStartup, log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting formalizacion server",
		"port", cfg.Port,
		log.FieldSource, cfg.DataSource,
		"municipality", cfg.Municipality)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
