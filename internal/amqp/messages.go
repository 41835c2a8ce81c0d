package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"subtrack/internal/core"
)

// IngestBatchMessage carries candidate records from a source to the ingest
// worker. Records are embedded in full: the worker has no other way to
// reach the raw source.
type IngestBatchMessage struct {
	BatchID   string           `json:"batch_id"`
	Source    string           `json:"source"`
	Records   []core.Candidate `json:"records"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewIngestBatchMessage creates a batch with a fresh ID.
func NewIngestBatchMessage(source string, records []core.Candidate) *IngestBatchMessage {
	return &IngestBatchMessage{
		BatchID:   uuid.NewString(),
		Source:    source,
		Records:   records,
		Timestamp: time.Now(),
	}
}

func (m *IngestBatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func IngestBatchMessageFromJSON(data []byte) (*IngestBatchMessage, error) {
	var msg IngestBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
