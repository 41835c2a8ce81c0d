package services

import (
	"subtrack/internal/analyzer"
	"subtrack/internal/core"
)

// AddRequest is the input of AddSubscription. Cycle, category and currency
// are optional.
type AddRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Cost     float64 `json:"cost" validate:"gte=0"`
	Cycle    string  `json:"cycle"`
	Category string  `json:"category,omitempty"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,max=8"`
}

type AddResult struct {
	Subscription core.Subscription `json:"subscription"`
	NextBilling  string            `json:"next_billing"`
	Message      string            `json:"message"`
}

// SkippedRecord reports a candidate rejected during ingestion.
type SkippedRecord struct {
	Index   int    `json:"index"`
	Service string `json:"service,omitempty"`
	Reason  string `json:"reason"`
}

type IngestResult struct {
	Ingested []core.Subscription `json:"ingested"`
	Skipped  []SkippedRecord     `json:"skipped"`
	// AlreadyStored counts queued records found under their batch ID.
	AlreadyStored int `json:"already_stored,omitempty"`
	// TotalMonthly is the monthly cost of the records appended by this call.
	TotalMonthly float64 `json:"total_monthly"`
}

type ScanResult struct {
	Source             string           `json:"source"`
	SubscriptionsFound int              `json:"subscriptions_found"`
	Subscriptions      []core.Candidate `json:"subscriptions"`
	Ingest             IngestResult     `json:"ingest"`
	TotalMonthly       float64          `json:"total_monthly"`
	Timestamp          string           `json:"timestamp"`
}

// SpendingAnalysis is the analyze_spending result. An empty store sets
// Empty and Message and leaves Analysis nil.
type SpendingAnalysis struct {
	Empty       bool             `json:"-"`
	Message     string           `json:"message,omitempty"`
	Analysis    *analyzer.Report `json:"analysis,omitempty"`
	Currency    string           `json:"currency"`
	GeneratedAt string           `json:"generated_at"`
}

const StatusCancellationPrepared = "cancellation_prepared"

type CancellationResult struct {
	Subscription   string   `json:"subscription"`
	SubscriptionID string   `json:"subscription_id"`
	Status         string   `json:"status"`
	EmailTemplate  string   `json:"email_template,omitempty"`
	Alternatives   []string `json:"alternatives,omitempty"`
	NextSteps      []string `json:"next_steps"`
}

// QueuedIngest acknowledges a batch handed to the ingest queue.
type QueuedIngest struct {
	BatchID string `json:"batch_id"`
	Records int    `json:"records"`
}
