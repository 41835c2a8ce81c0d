// Package store defines the subscription store contract shared by the
// in-memory and SQLite backends.
package store

import (
	"context"

	"subtrack/internal/core"
)

// Ports for outbound adapters.
type (
	// Store is an ordered collection of subscriptions. Lookups resolve an
	// identifier by ID first, then by case-insensitive name. "Not found" is
	// reported through the boolean result, never through the error; errors
	// are reserved for backend failures.
	Store interface {
		// Add assigns an ID when the record has none and appends it.
		Add(ctx context.Context, sub *core.Subscription) error
		// ListAll returns an independent copy of every record in insertion order.
		ListAll(ctx context.Context) ([]core.Subscription, error)
		// Get returns a copy of the record matching identifier.
		Get(ctx context.Context, identifier string) (core.Subscription, bool, error)
		// Update merges patch into the matching record. Unresolved identifiers
		// are a silent no-op.
		Update(ctx context.Context, identifier string, patch core.Patch) error
	}

	// Closer is implemented by backends holding external resources.
	Closer interface {
		Close() error
	}
)
