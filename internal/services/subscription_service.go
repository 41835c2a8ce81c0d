package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"subtrack/internal/amqp"
	"subtrack/internal/analyzer"
	"subtrack/internal/catalog"
	"subtrack/internal/core"
	"subtrack/internal/ingest"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
	"subtrack/internal/recommend"
	"subtrack/internal/store"
)

// BatchPublisher hands candidate batches to the ingest queue.
type BatchPublisher interface {
	PublishIngestBatch(ctx context.Context, msg *amqp.IngestBatchMessage) error
}

// SubscriptionService orchestrates the subscription operations over a store.
type SubscriptionService struct {
	store     store.Store
	engine    *recommend.Engine
	catalog   *catalog.Catalog
	usage     analyzer.UsageSignal
	scanner   *ingest.Scanner
	publisher BatchPublisher
	currency  string
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*SubscriptionService)

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *SubscriptionService) { s.catalog = c }
}

func WithUsageSignal(u analyzer.UsageSignal) Option {
	return func(s *SubscriptionService) { s.usage = u }
}

func WithScanner(sc *ingest.Scanner) Option {
	return func(s *SubscriptionService) { s.scanner = sc }
}

// WithPublisher enables QueueIngest.
func WithPublisher(p BatchPublisher) Option {
	return func(s *SubscriptionService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *SubscriptionService) { s.now = now }
}

// WithCurrency sets the tag reported by AnalyzeSpending.
func WithCurrency(currency string) Option {
	return func(s *SubscriptionService) {
		if currency != "" {
			s.currency = currency
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *SubscriptionService) { s.logger = l }
}

func NewSubscriptionService(st store.Store, opts ...Option) *SubscriptionService {
	s := &SubscriptionService{
		store:    st,
		catalog:  catalog.Default(),
		usage:    analyzer.NoUsageSignal{},
		scanner:  ingest.NewScanner(),
		currency: core.DefaultCurrency,
		now:      time.Now,
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentSubscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = recommend.New(recommend.WithCatalog(s.catalog), recommend.WithUsageSignal(s.usage))
	return s
}

// Catalog returns the alternatives table shared by recommendations and
// cancellations.
func (s *SubscriptionService) Catalog() *catalog.Catalog {
	return s.catalog
}

// AddSubscription creates an active subscription with a fresh UUID.
func (s *SubscriptionService) AddSubscription(ctx context.Context, req AddRequest) (res AddResult, err error) {
	defer s.observe(ctx, log.OpCreate, time.Now(), &err)

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return AddResult{}, core.WrapError(core.ErrorCodeValidationFailed, "name is required", core.ErrEmptyName)
	}
	if err := core.ValidateStruct(req); err != nil {
		return AddResult{}, err
	}

	now := s.now()
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = core.DefaultCurrency
	}
	sub := core.Subscription{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Cost:         req.Cost,
		Currency:     currency,
		BillingCycle: core.BillingCycle(strings.ToLower(strings.TrimSpace(req.Cycle))),
		Category:     strings.TrimSpace(req.Category),
		Status:       core.StatusActive,
		StartDate:    now,
		CreatedAt:    now,
	}
	if err := s.store.Add(ctx, &sub); err != nil {
		return AddResult{}, core.WrapError(core.ErrorCodeInternal, "save subscription", err)
	}

	s.logger.InfoContext(ctx, "Subscription added",
		log.NewFields().WithSubscription(sub.ID, sub.Name, sub.Cost).ToSlice()...)

	return AddResult{
		Subscription: sub,
		NextBilling:  analyzer.FormatTimestamp(analyzer.NextBillingDate(sub.Cycle(), now)),
		Message:      fmt.Sprintf("Subscription '%s' added successfully", sub.Name),
	}, nil
}

// ListSubscriptions returns a snapshot of every record.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context) (subs []core.Subscription, err error) {
	defer s.observe(ctx, log.OpList, time.Now(), &err)

	subs, err = s.store.ListAll(ctx)
	if err != nil {
		return nil, core.WrapError(core.ErrorCodeInternal, "list subscriptions", err)
	}
	return subs, nil
}

// FindSubscription resolves identifier by ID, then by case-insensitive name.
func (s *SubscriptionService) FindSubscription(ctx context.Context, identifier string) (core.Subscription, bool, error) {
	sub, ok, err := s.store.Get(ctx, identifier)
	if err != nil {
		return core.Subscription{}, false, core.WrapError(core.ErrorCodeInternal, "get subscription", err)
	}
	return sub, ok, nil
}

// UpdateSubscription merges patch into the record matching identifier.
// Unknown identifiers are a no-op.
func (s *SubscriptionService) UpdateSubscription(ctx context.Context, identifier string, patch core.Patch) (err error) {
	defer s.observe(ctx, log.OpUpdate, time.Now(), &err)

	if err := s.store.Update(ctx, identifier, patch); err != nil {
		return core.WrapError(core.ErrorCodeInternal, "update subscription", err)
	}
	return nil
}

// Ingest appends every valid candidate. Invalid ones are skipped and
// reported; they never abort the batch.
func (s *SubscriptionService) Ingest(ctx context.Context, source string, records []core.Candidate) (res IngestResult, err error) {
	defer s.observe(ctx, log.OpIngest, time.Now(), &err)
	return s.appendRecords(ctx, source, "", records)
}

// IngestBatch ingests a queued batch. Record i is stored under the ID
// "<batchID>-<i>" and records whose ID is already stored are counted in
// AlreadyStored instead of being added again, so a batch redelivered after
// a partial failure stores each record once. An empty batchID behaves like
// Ingest.
func (s *SubscriptionService) IngestBatch(ctx context.Context, batchID, source string, records []core.Candidate) (res IngestResult, err error) {
	defer s.observe(ctx, log.OpIngest, time.Now(), &err)
	return s.appendRecords(ctx, source, batchID, records)
}

// BatchRecordID is the ID a queued record is stored under.
func BatchRecordID(batchID string, index int) string {
	return batchID + "-" + strconv.Itoa(index)
}

func (s *SubscriptionService) appendRecords(ctx context.Context, source, batchID string, records []core.Candidate) (IngestResult, error) {
	res := IngestResult{Ingested: []core.Subscription{}, Skipped: []SkippedRecord{}}
	now := s.now()
	for i, rec := range records {
		if verr := rec.Validate(); verr != nil {
			res.Skipped = append(res.Skipped, SkippedRecord{Index: i, Service: rec.Service, Reason: core.GetMessage(verr)})
			continue
		}
		sub := rec.ToSubscription(now)
		if batchID != "" {
			sub.ID = BatchRecordID(batchID, i)
			existing, found, err := s.store.Get(ctx, sub.ID)
			if err != nil {
				return res, core.WrapError(core.ErrorCodeInternal, "look up ingested subscription", err)
			}
			if found && existing.ID == sub.ID {
				res.AlreadyStored++
				continue
			}
		}
		if err := s.store.Add(ctx, &sub); err != nil {
			return res, core.WrapError(core.ErrorCodeInternal, "save ingested subscription", err)
		}
		res.Ingested = append(res.Ingested, sub)
	}
	res.TotalMonthly = analyzer.MonthlyTotal(res.Ingested)

	metrics.RecordIngest(source, len(res.Ingested), len(res.Skipped))
	if res.AlreadyStored > 0 {
		s.logger.InfoContext(ctx, "Batch records already stored",
			"source", source, log.FieldBatchID, batchID, "already_stored", res.AlreadyStored)
	}
	if len(res.Skipped) > 0 {
		s.logger.WarnContext(ctx, "Skipped malformed records",
			"source", source, "skipped", len(res.Skipped), "ingested", len(res.Ingested))
	}
	return res, nil
}

// QueueIngest publishes the candidates for the ingest worker instead of
// storing them directly.
func (s *SubscriptionService) QueueIngest(ctx context.Context, source string, records []core.Candidate) (q QueuedIngest, err error) {
	defer s.observe(ctx, log.OpPublish, time.Now(), &err)

	if s.publisher == nil {
		return QueuedIngest{}, core.NewDomainError(core.ErrorCodeSourceUnavailable, "ingest queue is not configured")
	}
	msg := amqp.NewIngestBatchMessage(source, records)
	if err := s.publisher.PublishIngestBatch(ctx, msg); err != nil {
		return QueuedIngest{}, core.WrapError(core.ErrorCodeInternal, "publish ingest batch", err)
	}
	return QueuedIngest{BatchID: msg.BatchID, Records: len(records)}, nil
}

// Scan collects candidates from a source and ingests them.
func (s *SubscriptionService) Scan(ctx context.Context, req ingest.ScanRequest) (res ScanResult, err error) {
	defer s.observe(ctx, log.OpScan, time.Now(), &err)

	candidates, err := s.scanner.Collect(ctx, req)
	if err != nil {
		var de *core.DomainError
		if errors.As(err, &de) {
			return ScanResult{}, err
		}
		return ScanResult{}, core.WrapError(core.ErrorCodeInternal, "scan "+req.Source, err)
	}

	source := strings.ToLower(strings.TrimSpace(req.Source))
	ingested, err := s.Ingest(ctx, source, candidates)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{
		Source:             source,
		SubscriptionsFound: len(candidates),
		Subscriptions:      candidates,
		Ingest:             ingested,
		TotalMonthly:       ingested.TotalMonthly,
		Timestamp:          analyzer.FormatTimestamp(s.now()),
	}, nil
}

// AnalyzeSpending summarizes the store. An empty store yields the distinct
// "No subscriptions found" shape.
func (s *SubscriptionService) AnalyzeSpending(ctx context.Context) (res SpendingAnalysis, err error) {
	defer s.observe(ctx, log.OpAnalyze, time.Now(), &err)

	subs, err := s.store.ListAll(ctx)
	if err != nil {
		return SpendingAnalysis{}, core.WrapError(core.ErrorCodeInternal, "list subscriptions", err)
	}
	res = SpendingAnalysis{Currency: s.currency, GeneratedAt: analyzer.FormatTimestamp(s.now())}
	if len(subs) == 0 {
		res.Empty = true
		res.Message = "No subscriptions found"
		return res, nil
	}
	report := analyzer.Summarize(subs, s.usage)
	res.Analysis = &report
	return res, nil
}

// GetRecommendations runs the recommendation engine over the store.
func (s *SubscriptionService) GetRecommendations(ctx context.Context) (res recommend.Result, err error) {
	defer s.observe(ctx, log.OpRecommend, time.Now(), &err)

	subs, err := s.store.ListAll(ctx)
	if err != nil {
		return recommend.Result{}, core.WrapError(core.ErrorCodeInternal, "list subscriptions", err)
	}
	return s.engine.Recommend(subs), nil
}

// PrepareCancellation marks the record cancelled and returns the notice,
// alternatives and follow-up steps. Repeating it is harmless: the status
// stays cancelled and cancelled_at is refreshed.
func (s *SubscriptionService) PrepareCancellation(ctx context.Context, identifier string, generateNotice bool) (res CancellationResult, err error) {
	defer s.observe(ctx, log.OpCancel, time.Now(), &err)

	sub, ok, err := s.store.Get(ctx, identifier)
	if err != nil {
		return CancellationResult{}, core.WrapError(core.ErrorCodeInternal, "get subscription", err)
	}
	if !ok {
		return CancellationResult{}, core.NotFound(identifier)
	}

	res = CancellationResult{
		Subscription:   sub.Name,
		SubscriptionID: sub.ID,
		Status:         StatusCancellationPrepared,
		NextSteps:      CancellationSteps(sub.Name),
	}
	if generateNotice {
		res.EmailTemplate = CancellationNotice(sub)
	}

	// update by ID so a same-named record is never hit
	if err := s.store.Update(ctx, sub.ID, core.CancelPatch(s.now())); err != nil {
		return CancellationResult{}, core.WrapError(core.ErrorCodeInternal, "cancel subscription", err)
	}
	if alts := s.catalog.Alternatives(sub.Name); len(alts) > 0 {
		res.Alternatives = alts
	}

	s.logger.InfoContext(ctx, "Cancellation prepared",
		log.NewFields().WithSubscription(sub.ID, sub.Name, sub.Cost).ToSlice()...)
	return res, nil
}

// Alternatives exposes the catalog lookup.
func (s *SubscriptionService) Alternatives(name string) []string {
	return s.catalog.Alternatives(name)
}

func (s *SubscriptionService) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	metrics.ObserveOperation(op, start, err)
	if err == nil {
		return
	}
	fields := log.NewFields().WithOperation(op).WithError(err)
	if code := core.GetErrorCode(err); code == "" || code == core.ErrorCodeInternal {
		s.logger.ErrorContext(ctx, "Operation failed", fields.ToSlice()...)
		return
	}
	s.logger.WarnContext(ctx, "Operation rejected", fields.ToSlice()...)
}

// Close releases the store and publisher when they hold resources.
func (s *SubscriptionService) Close() error {
	var errs []error
	if c, ok := s.store.(store.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(store.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
