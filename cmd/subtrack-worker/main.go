package main

import (
	"context"
	"errors"
	"os"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/cli"
	"subtrack/internal/log"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the ingest worker")
		os.Exit(1)
	}

	res := cli.CreateBackend(context.Background(), cfg, logger)
	if res.Publisher == nil {
		logger.Error("Ingest queue unavailable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		_ = res.Cleanup()
		os.Exit(1)
	}
	svc := cli.NewService(cfg, res, logger)
	ingestWorker := worker.NewIngestWorker(svc, logger)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(ingestWorker.Seen())
	caches.StartCleanup(time.Hour)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
	})

	logger.Info("Starting subtrack-worker", "queue", cfg.AMQPQueue, "backend", cfg.DataBackend,
		log.FieldOperation, log.OpStartup)

	consumeErr := res.Publisher.ConsumeIngestBatches(ctx, ingestWorker.HandleBatch)
	if consumeErr != nil && !errors.Is(consumeErr, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, consumeErr)
	} else {
		cli.WaitForShutdown(ctx, done)
	}

	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", log.FieldError, err)
	}
	if consumeErr != nil && !errors.Is(consumeErr, context.Canceled) {
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
