package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistent storage collaborator. Implementations must
// provide atomicity per single-task write; no multi-row transactions are
// required. An unreachable backend maps to ErrStorageUnavailable.
type Store interface {
	Insert(ctx context.Context, t *Task) error
	Get(ctx context.Context, id uuid.UUID) (*Task, error)
	// Update persists t only if the stored version still equals
	// expectedVersion; a stale expectation fails with ErrConflict.
	Update(ctx context.Context, t *Task, expectedVersion int64) error
	// ListAll returns every task with its current version.
	ListAll(ctx context.Context) ([]*Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
