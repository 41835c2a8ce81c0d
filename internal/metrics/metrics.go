// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"subtrack/internal/core"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrack_operations_total",
			Help: "Total number of service operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subtrack_operation_duration_seconds",
			Help:    "Duration of service operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	recordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrack_records_ingested_total",
			Help: "Candidate records appended to the store, by source",
		},
		[]string{"source"},
	)

	recordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrack_records_skipped_total",
			Help: "Malformed candidate records skipped during ingestion, by source",
		},
		[]string{"source"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subtrack_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subtrack_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	queueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtrack_queue_messages_total",
			Help: "Ingest queue messages by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)
)

// ObserveOperation records the outcome and latency of a service call.
func ObserveOperation(operation string, start time.Time, err error) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
		if code := core.GetErrorCode(err); code != "" {
			outcome = string(code)
		}
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordIngest counts appended and skipped records for a source.
func RecordIngest(source string, ingested, skipped int) {
	if source == "" {
		source = "api"
	}
	recordsIngested.WithLabelValues(source).Add(float64(ingested))
	recordsSkipped.WithLabelValues(source).Add(float64(skipped))
}

// HTTPStarted marks a request in flight. The returned func records its end.
func HTTPStarted(method string) func(status int) {
	start := time.Now()
	httpRequestsInFlight.Inc()
	return func(status int) {
		httpRequestsInFlight.Dec()
		httpRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	}
}

// RecordQueueMessage counts a published or consumed ingest message.
func RecordQueueMessage(direction string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	queueMessagesTotal.WithLabelValues(direction, outcome).Inc()
}
