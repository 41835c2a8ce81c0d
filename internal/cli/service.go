package cli

import (
	"context"
	"os"

	"subtrack/internal/backend"
	"subtrack/internal/config"
	"subtrack/internal/log"
	"subtrack/internal/services"
)

// CreateBackend builds the configured backend and exits the process when the
// store cannot be opened.
func CreateBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err,
			"supported", backend.GetBackendTypeStrings())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// NewService wires a subscription service over the backend's collaborators.
func NewService(cfg *config.Config, res *backend.Result, logger *log.Logger) *services.SubscriptionService {
	opts := []services.Option{
		services.WithScanner(res.Scanner),
		services.WithCurrency(cfg.DefaultCurrency),
		services.WithLogger(logger.WithComponent(log.ComponentSubscription)),
	}
	// a nil *amqp.Client must not end up in the publisher interface
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	return services.NewSubscriptionService(res.Store, opts...)
}
