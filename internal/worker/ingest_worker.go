package worker

import (
	"context"
	"fmt"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/cache"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/services"
)

const (
	seenBatchCapacity = 1024
	seenBatchTTL      = 24 * time.Hour
)

// Ingester is the slice of the subscription service the worker needs.
type Ingester interface {
	IngestBatch(ctx context.Context, batchID, source string, records []core.Candidate) (services.IngestResult, error)
}

// IngestWorker stores batches published by importers.
type IngestWorker struct {
	ingester Ingester
	seen     *cache.LRUCache[int]
	logger   *log.StructuredLogger
}

func NewIngestWorker(ingester Ingester, logger *log.Logger) *IngestWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &IngestWorker{
		ingester: ingester,
		seen:     cache.NewLRUCache[int](seenBatchCapacity, seenBatchTTL),
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentWorker)),
	}
}

// Seen exposes the processed-batch cache so it can be swept by a cache.Manager.
func (w *IngestWorker) Seen() *cache.LRUCache[int] {
	return w.seen
}

// HandleBatch ingests one queued batch. A batch ID that was already stored
// is acknowledged without ingesting again. A batch that failed halfway is
// requeued; its records carry IDs derived from the batch ID, so the retry
// only adds the ones that are still missing.
func (w *IngestWorker) HandleBatch(ctx context.Context, msg *amqp.IngestBatchMessage) error {
	if msg.BatchID != "" {
		if n, ok := w.seen.Get(msg.BatchID); ok {
			w.logger.LogIngestBatch(ctx, msg.Source, msg.BatchID, n, 0)
			return nil
		}
	}

	res, err := w.ingester.IngestBatch(ctx, msg.BatchID, msg.Source, msg.Records)
	if err != nil {
		w.logger.LogError(ctx, "Ingest batch failed", err, log.OpIngest,
			log.NewFields().WithSource(msg.Source))
		return fmt.Errorf("ingest batch %s: %w", msg.BatchID, err)
	}

	if msg.BatchID != "" {
		w.seen.Set(msg.BatchID, len(res.Ingested))
	}
	w.logger.LogIngestBatch(ctx, msg.Source, msg.BatchID, len(res.Ingested), len(res.Skipped))
	return nil
}
