package backend

import (
	"context"
	"errors"
	"fmt"

	"subtrack/internal/amqp"
	"subtrack/internal/ingest"
	"subtrack/internal/log"
	"subtrack/internal/store"
	"subtrack/internal/store/memory"
	"subtrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the store and the optional AMQP and Gmail
// collaborators. Optional ones that fail to start are logged and left out.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	var closers []func() error

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store = repo
		res.Ready = repo.Ping
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		st, err := f.createMemoryStore(config)
		if err != nil {
			return nil, err
		}
		res.Store = st
		res.Ready = func(context.Context) error { return nil }
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ingest queue", log.FieldError, err)
		} else {
			res.Publisher = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	var scanOpts []ingest.ScannerOption
	if config.Gmail.Configured() {
		svc, err := ingest.NewGmailService(ctx, config.Gmail)
		if err != nil {
			f.logger.Warn("Failed to initialize Gmail client, gmail source disabled", log.FieldError, err)
		} else {
			src := ingest.NewGmailSource(ingest.NewMessageAPI(svc), nil,
				f.logger.WithComponent(log.ComponentGmail).Logger)
			src.SetDefaults(config.GmailQuery, config.GmailMaxResults)
			res.Gmail = src
			scanOpts = append(scanOpts, ingest.WithGmail(src))
			f.logger.Info("Initialized Gmail source")
		}
	}
	res.Scanner = ingest.NewScanner(scanOpts...)

	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (store.Store, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	st, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile, "records", st.Len())
	return st, nil
}
