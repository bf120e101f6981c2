package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds events to the store in one transaction.
	Append(ctx context.Context, events ...Event) error

	// GetBySessionID retrieves all events for a session in insertion order.
	GetBySessionID(ctx context.Context, sessionID string) ([]Event, error)

	// GetRange retrieves events stored within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Prune removes every session except the keep most recently started.
	Prune(ctx context.Context, keep int) error

	// Close closes the store and releases resources.
	Close() error
}
