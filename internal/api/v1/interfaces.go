// Package v1 exposes the task engine to agent front-ends over a typed
// HTTP API.
package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cptapp/cpt/internal/domain"
	"github.com/cptapp/cpt/internal/filter"
)

// Engine is the API's view of the storage synchronizer.
type Engine interface {
	Capture(ctx context.Context, text string) (domain.Task, error)
	Get(id uuid.UUID) (domain.Task, error)
	Query(spec filter.Spec) []domain.Task
	Summaries() []domain.ProjectSummary
	Update(ctx context.Context, id uuid.UUID, mutator func(*domain.Task) error) (domain.Task, error)
	Transition(ctx context.Context, id uuid.UUID, target domain.TaskStatus) (domain.Task, error)
	Reopen(ctx context.Context, id uuid.UUID) (domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ChangeVersion() uint64
	ResolveDate(spec string) (time.Time, error)
}
