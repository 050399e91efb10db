package storage

import (
	"context"

	"github.com/poiesic/codemine/core"
)

// AuditRepository is the append-only log of model attempts and repair
// failures. Implementations must be thread-safe and support concurrent access.
type AuditRepository interface {
	// Append stores one or more entries.
	// Generates a new ID from the sequence for every entry and sets
	// Timestamp if it is zero.
	// Returns the entries with IDs populated.
	Append(ctx context.Context, entries ...*core.AuditEntry) ([]*core.AuditEntry, error)

	// Get retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.AuditEntry, error)

	// ListByRun retrieves every entry of a run in append order.
	ListByRun(ctx context.Context, runID string) ([]*core.AuditEntry, error)

	// ListByChunk retrieves the entries of one chunk within a run in append order.
	ListByChunk(ctx context.Context, runID string, chunk core.ChunkRef) ([]*core.AuditEntry, error)

	// Runs lists the distinct run IDs present in the log, sorted.
	Runs(ctx context.Context) ([]string, error)

	// Close releases resources held by the repository.
	// It does not close the underlying backend.
	Close() error
}
