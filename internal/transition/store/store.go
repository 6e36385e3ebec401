// Package store persists transition log entries.
package store

import (
	"context"

	"simtrack/internal/transition"
)

// DefaultQueryLimit applies when a reader does not supply a limit.
const DefaultQueryLimit = 100

// Store is the persistence boundary for the transition log. Append runs
// inside the reconcile engine's transaction; there are no update or delete
// operations.
type Store interface {
	Append(ctx context.Context, entry *transition.Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*transition.Entry, error)
}
