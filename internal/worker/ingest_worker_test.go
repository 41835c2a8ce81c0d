package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/store/memory"
)

type failingIngester struct{ calls int }

func (f *failingIngester) IngestBatch(context.Context, string, string, []core.Candidate) (services.IngestResult, error) {
	f.calls++
	return services.IngestResult{}, errors.New("store offline")
}

func TestHandleBatchStoresRecords(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := services.NewSubscriptionService(st, services.WithLogger(log.Discard()))
	w := NewIngestWorker(svc, log.Discard())

	msg := amqp.NewIngestBatchMessage("csv", []core.Candidate{
		{Service: "Netflix", Amount: 15.99},
		{Service: "", Amount: 1},
	})
	require.NoError(t, w.HandleBatch(ctx, msg))
	assert.Equal(t, 1, st.Len())

	// redelivery of the same batch
	require.NoError(t, w.HandleBatch(ctx, msg))
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, 1, w.Seen().Size())
}

// flakyStore fails the failOn-th Add once.
type flakyStore struct {
	*memory.Store
	adds   int
	failOn int
}

func (s *flakyStore) Add(ctx context.Context, sub *core.Subscription) error {
	s.adds++
	if s.adds == s.failOn {
		return errors.New("disk full")
	}
	return s.Store.Add(ctx, sub)
}

func TestHandleBatchRetryAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Store: memory.New(), failOn: 2}
	svc := services.NewSubscriptionService(st, services.WithLogger(log.Discard()))
	w := NewIngestWorker(svc, log.Discard())

	msg := amqp.NewIngestBatchMessage("csv", []core.Candidate{
		{Service: "Netflix", Amount: 15.99},
		{Service: "Spotify", Amount: 9.99},
	})
	require.Error(t, w.HandleBatch(ctx, msg))
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, 0, w.Seen().Size())

	// the broker redelivers the failed batch
	require.NoError(t, w.HandleBatch(ctx, msg))

	subs, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Netflix", subs[0].Name)
	assert.Equal(t, services.BatchRecordID(msg.BatchID, 0), subs[0].ID)
	assert.Equal(t, "Spotify", subs[1].Name)
	assert.Equal(t, services.BatchRecordID(msg.BatchID, 1), subs[1].ID)

	recs, err := svc.GetRecommendations(ctx)
	require.NoError(t, err)
	for _, r := range recs.Recommendations {
		assert.NotEqual(t, "duplicate", r.Type)
	}
}

func TestHandleBatchPropagatesErrors(t *testing.T) {
	ing := &failingIngester{}
	w := NewIngestWorker(ing, log.Discard())
	msg := amqp.NewIngestBatchMessage("csv", nil)

	err := w.HandleBatch(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), msg.BatchID)

	// failed batches are retried, not remembered
	require.Error(t, w.HandleBatch(context.Background(), msg))
	assert.Equal(t, 2, ing.calls)
	assert.Equal(t, 0, w.Seen().Size())
}
