package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/ingest"
	"subtrack/internal/log"
	"subtrack/internal/recommend"
	"subtrack/internal/store/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*SubscriptionService, *memory.Store) {
	t.Helper()
	st := memory.New(memory.WithClock(func() time.Time { return testNow }))
	base := []Option{WithClock(func() time.Time { return testNow }), WithLogger(log.Discard())}
	return NewSubscriptionService(st, append(base, opts...)...), st
}

func streamingBatch() []core.Candidate {
	return []core.Candidate{
		{Service: "Netflix", Amount: 15.99, Cycle: "monthly", Category: "streaming"},
		{Service: "Spotify", Amount: 9.99, Cycle: "monthly", Category: "streaming"},
		{Service: "Hulu", Amount: 7.99, Cycle: "monthly", Category: "streaming"},
	}
}

func TestEndToEndStreamingBundle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	res, err := svc.Ingest(ctx, "api", streamingBatch())
	require.NoError(t, err)
	assert.Len(t, res.Ingested, 3)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 33.97, res.TotalMonthly)

	analysis, err := svc.AnalyzeSpending(ctx)
	require.NoError(t, err)
	require.NotNil(t, analysis.Analysis)
	assert.False(t, analysis.Empty)
	assert.Equal(t, 33.97, analysis.Analysis.TotalMonthly)
	assert.Equal(t, 407.64, analysis.Analysis.TotalYearly)
	assert.Equal(t, 3, analysis.Analysis.SubscriptionCount)
	assert.Equal(t, "EUR", analysis.Currency)
	assert.Equal(t, "2025-06-01T12:00:00Z", analysis.GeneratedAt)

	recs, err := svc.GetRecommendations(ctx)
	require.NoError(t, err)
	var bundles []recommend.Recommendation
	for _, r := range recs.Recommendations {
		if r.Type == recommend.TypeBundle {
			bundles = append(bundles, r)
		}
	}
	require.Len(t, bundles, 1)
	assert.Equal(t, 15.0, bundles[0].Savings)
}

func TestAnalyzeEmptyStore(t *testing.T) {
	svc, _ := newTestService(t, WithCurrency("USD"))

	res, err := svc.AnalyzeSpending(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Equal(t, "No subscriptions found", res.Message)
	assert.Nil(t, res.Analysis)
	assert.Equal(t, "USD", res.Currency)
}

func TestAddSubscription(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	res, err := svc.AddSubscription(ctx, AddRequest{Name: "  Netflix ", Cost: 15.99, Cycle: "monthly", Category: "streaming"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Subscription.ID)
	assert.Equal(t, "Netflix", res.Subscription.Name)
	assert.Equal(t, core.StatusActive, res.Subscription.Status)
	assert.Equal(t, "EUR", res.Subscription.Currency)
	assert.Equal(t, "2025-07-01T12:00:00Z", res.NextBilling)
	assert.Equal(t, "Subscription 'Netflix' added successfully", res.Message)
	assert.Equal(t, 1, st.Len())

	yearly, err := svc.AddSubscription(ctx, AddRequest{Name: "Prime", Cost: 89.9, Cycle: "Yearly"})
	require.NoError(t, err)
	assert.Equal(t, "2026-06-01T12:00:00Z", yearly.NextBilling)
	assert.NotEqual(t, res.Subscription.ID, yearly.Subscription.ID)
}

func TestAddSubscriptionValidation(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	tests := []struct {
		name string
		req  AddRequest
	}{
		{"blank name", AddRequest{Name: "   ", Cost: 1}},
		{"negative cost", AddRequest{Name: "Netflix", Cost: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddSubscription(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
		})
	}
	assert.Equal(t, 0, st.Len())
}

func TestUpdateSubscription(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Ingest(ctx, "api", streamingBatch())
	require.NoError(t, err)

	before, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)

	cost := 17.99
	require.NoError(t, svc.UpdateSubscription(ctx, "missing", core.Patch{Cost: &cost}))
	after, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, svc.UpdateSubscription(ctx, "netflix", core.Patch{Cost: &cost}))
	after, err = svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17.99, after[0].Cost)
	require.NotNil(t, after[0].UpdatedAt)
}

func TestIngestSkipsMalformedRecords(t *testing.T) {
	svc, st := newTestService(t)

	res, err := svc.Ingest(context.Background(), "api", []core.Candidate{
		{Service: "Netflix", Amount: 15.99},
		{Service: "  ", Amount: 3},
		{Service: "Broken", Amount: -2},
		{Service: "Gym", Amount: 29.9, Cycle: "yearly"},
	})
	require.NoError(t, err)
	require.Len(t, res.Ingested, 2)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, 2, res.Skipped[1].Index)
	assert.Equal(t, "Broken", res.Skipped[1].Service)
	assert.NotEmpty(t, res.Skipped[1].Reason)
	// 15.99 + round(29.9/12, 2)
	assert.Equal(t, 18.48, res.TotalMonthly)
	assert.Equal(t, 2, st.Len())
}

func TestIngestBatchStoresEachRecordOnce(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	records := append(streamingBatch(), core.Candidate{Service: "", Amount: 1})
	first, err := svc.IngestBatch(ctx, "b1", "csv", records)
	require.NoError(t, err)
	require.Len(t, first.Ingested, 3)
	assert.Equal(t, "b1-0", first.Ingested[0].ID)
	assert.Equal(t, "b1-2", first.Ingested[2].ID)
	assert.Len(t, first.Skipped, 1)
	assert.Equal(t, 0, first.AlreadyStored)

	again, err := svc.IngestBatch(ctx, "b1", "csv", records)
	require.NoError(t, err)
	assert.Empty(t, again.Ingested)
	assert.Equal(t, 3, again.AlreadyStored)
	assert.Equal(t, 0.0, again.TotalMonthly)
	assert.Equal(t, 3, st.Len())

	// without a batch ID every call appends
	_, err = svc.IngestBatch(ctx, "", "api", streamingBatch()[:1])
	require.NoError(t, err)
	assert.Equal(t, 4, st.Len())
}

func TestScan(t *testing.T) {
	ctx := context.Background()

	t.Run("email", func(t *testing.T) {
		svc, st := newTestService(t)
		res, err := svc.Scan(ctx, ingest.ScanRequest{Source: "Email"})
		require.NoError(t, err)
		assert.Equal(t, "email", res.Source)
		assert.Equal(t, 5, res.SubscriptionsFound)
		assert.Len(t, res.Ingest.Ingested, 5)
		assert.Equal(t, 99.96, res.TotalMonthly)
		assert.Equal(t, "2025-06-01T12:00:00Z", res.Timestamp)
		assert.Equal(t, 5, st.Len())
	})

	t.Run("csv", func(t *testing.T) {
		svc, st := newTestService(t)
		res, err := svc.Scan(ctx, ingest.ScanRequest{
			Source:  "csv",
			CSVData: "description,amount\nNETFLIX.COM,-15.99\nGrocery,-40\n",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.SubscriptionsFound)
		assert.Equal(t, 1, st.Len())
	})

	t.Run("unknown source", func(t *testing.T) {
		svc, st := newTestService(t)
		_, err := svc.Scan(ctx, ingest.ScanRequest{Source: "fax"})
		require.Error(t, err)
		assert.Equal(t, core.ErrorCodeSourceInvalid, core.GetErrorCode(err))
		assert.Contains(t, core.GetMessage(err), "fax")
		assert.Equal(t, 0, st.Len())
	})

	t.Run("gmail not configured", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Scan(ctx, ingest.ScanRequest{Source: "gmail"})
		assert.Equal(t, core.ErrorCodeSourceUnavailable, core.GetErrorCode(err))
	})
}

func TestPrepareCancellation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	added, err := svc.AddSubscription(ctx, AddRequest{Name: "Adobe Creative Cloud", Cost: 54.99, Cycle: "monthly"})
	require.NoError(t, err)

	res, err := svc.PrepareCancellation(ctx, "adobe creative cloud", true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancellationPrepared, res.Status)
	assert.Equal(t, added.Subscription.ID, res.SubscriptionID)
	assert.Equal(t, []string{"Canva Pro", "Affinity Suite"}, res.Alternatives)
	assert.Len(t, res.NextSteps, 5)
	assert.Contains(t, res.EmailTemplate, "Subject: Cancellation Request - Adobe Creative Cloud Subscription")
	assert.Contains(t, res.EmailTemplate, "- Current Plan: Monthly")
	assert.Contains(t, res.EmailTemplate, "- Monthly Cost: EUR54.99")

	list, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.StatusCancelled, list[0].Status)
	require.NotNil(t, list[0].CancelledAt)

	again, err := svc.PrepareCancellation(ctx, added.Subscription.ID, false)
	require.NoError(t, err)
	assert.Empty(t, again.EmailTemplate)
	list, err = svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, list[0].Status)
}

func TestPrepareCancellationUnknown(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Ingest(ctx, "api", streamingBatch())
	require.NoError(t, err)
	before, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)

	_, err = svc.PrepareCancellation(ctx, "Disney+", true)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, "Subscription 'Disney+' not found", core.GetMessage(err))

	after, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

type fakePublisher struct {
	got []*amqp.IngestBatchMessage
	err error
}

func (f *fakePublisher) PublishIngestBatch(_ context.Context, msg *amqp.IngestBatchMessage) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, msg)
	return nil
}

func TestQueueIngest(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(t)
	_, err := svc.QueueIngest(ctx, "csv", streamingBatch())
	assert.Equal(t, core.ErrorCodeSourceUnavailable, core.GetErrorCode(err))

	pub := &fakePublisher{}
	svc, st := newTestService(t, WithPublisher(pub))
	q, err := svc.QueueIngest(ctx, "csv", streamingBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, q.Records)
	require.Len(t, pub.got, 1)
	assert.Equal(t, q.BatchID, pub.got[0].BatchID)
	assert.Equal(t, "csv", pub.got[0].Source)
	assert.Equal(t, 0, st.Len(), "queued records are stored by the worker")

	pub.err = errors.New("broker down")
	_, err = svc.QueueIngest(ctx, "csv", streamingBatch())
	assert.Equal(t, core.ErrorCodeInternal, core.GetErrorCode(err))
}

func TestFindSubscription(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	added, err := svc.AddSubscription(ctx, AddRequest{Name: "Netflix", Cost: 15.99})
	require.NoError(t, err)

	got, ok, err := svc.FindSubscription(ctx, added.Subscription.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Netflix", got.Name)

	_, ok, err = svc.FindSubscription(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
