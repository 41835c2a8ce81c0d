package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/cli"
	apphttp "subtrack/internal/http"
	"subtrack/internal/log"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	res := cli.CreateBackend(context.Background(), cfg, logger)
	svc := cli.NewService(cfg, res, logger)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	if res.Gmail != nil {
		caches.Register(res.Gmail.TextCache())
	}
	caches.StartCleanup(cacheSweepInterval)

	srv := apphttp.NewServer(svc, apphttp.Config{
		Addr:           ":" + cfg.Port,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Ready:          res.Ready,
		Logger:         logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting subtrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", res.Publisher != nil,
		"gmail", res.Gmail != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
