package backend

import (
	"context"

	"subtrack/internal/amqp"
	"subtrack/internal/ingest"
	"subtrack/internal/store"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// Result is everything the binaries wire into the subscription service.
// Publisher and Gmail are nil when not configured.
type Result struct {
	Store     store.Store
	Publisher *amqp.Client
	Gmail     *ingest.GmailSource
	Scanner   *ingest.Scanner
	// Ready reports whether the store can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds what backend creation needs from the application config.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedFile     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Gmail           ingest.GmailCredentials
	GmailQuery      string
	GmailMaxResults int64
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
