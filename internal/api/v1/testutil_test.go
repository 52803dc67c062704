package v1_test

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/cptapp/cpt/internal/api/v1"
	"github.com/cptapp/cpt/internal/domain"
	"github.com/cptapp/cpt/internal/filter"
	"github.com/cptapp/cpt/internal/store/memory"
	"github.com/cptapp/cpt/internal/syncer"
)

// ---------------------------------------------------------------------------
// Real engine over the in-memory store: covers the happy paths
// end-to-end through parsing, lifecycle, and filtering.
// ---------------------------------------------------------------------------

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T) (humatest.TestAPI, *syncer.Synchronizer) {
	t.Helper()

	engine := syncer.New(memory.New(), domain.SystemClock{})
	require.NoError(t, engine.Load(context.Background()))

	_, api := humatest.New(t)
	v1.RegisterTaskRoutes(api, engine)
	v1.RegisterProjectRoutes(api, engine)
	v1.RegisterChangeRoutes(api, engine)
	return api, engine
}

// ---------------------------------------------------------------------------
// Mock engine: drives the error-mapping paths no real store hits
// deterministically.
// ---------------------------------------------------------------------------

type mockEngine struct {
	captureFunc    func(ctx context.Context, text string) (domain.Task, error)
	getFunc        func(id uuid.UUID) (domain.Task, error)
	queryFunc      func(spec filter.Spec) []domain.Task
	summariesFunc  func() []domain.ProjectSummary
	updateFunc     func(ctx context.Context, id uuid.UUID, mutator func(*domain.Task) error) (domain.Task, error)
	transitionFunc func(ctx context.Context, id uuid.UUID, target domain.TaskStatus) (domain.Task, error)
	reopenFunc     func(ctx context.Context, id uuid.UUID) (domain.Task, error)
	deleteFunc     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockEngine) Capture(ctx context.Context, text string) (domain.Task, error) {
	return m.captureFunc(ctx, text)
}

func (m *mockEngine) Get(id uuid.UUID) (domain.Task, error) {
	return m.getFunc(id)
}

func (m *mockEngine) Query(spec filter.Spec) []domain.Task {
	return m.queryFunc(spec)
}

func (m *mockEngine) Summaries() []domain.ProjectSummary {
	return m.summariesFunc()
}

func (m *mockEngine) Update(ctx context.Context, id uuid.UUID, mutator func(*domain.Task) error) (domain.Task, error) {
	return m.updateFunc(ctx, id, mutator)
}

func (m *mockEngine) Transition(ctx context.Context, id uuid.UUID, target domain.TaskStatus) (domain.Task, error) {
	return m.transitionFunc(ctx, id, target)
}

func (m *mockEngine) Reopen(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	return m.reopenFunc(ctx, id)
}

func (m *mockEngine) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockEngine) ChangeVersion() uint64 { return 0 }

func (m *mockEngine) ResolveDate(string) (time.Time, error) { return testNow, nil }
