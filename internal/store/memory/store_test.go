package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptapp/cpt/internal/domain"
	"github.com/cptapp/cpt/internal/store/memory"
)

func newTask(title string) domain.Task {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return domain.Task{
		ID:        uuid.New(),
		Title:     title,
		Status:    domain.StatusInbox,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func TestStore_InsertGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	task := newTask("first")
	require.NoError(t, s.Insert(ctx, &task))

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, *got)

	assert.ErrorIs(t, s.Insert(ctx, &task), domain.ErrConflict)
}

func TestStore_GetUnknown(t *testing.T) {
	t.Parallel()

	s := memory.New()
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateChecksVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	task := newTask("versioned")
	require.NoError(t, s.Insert(ctx, &task))

	next := task.Clone()
	next.Title = "edited"
	next.Version = 2
	require.NoError(t, s.Update(ctx, &next, 1))

	// Writing against the superseded version must fail.
	stale := task.Clone()
	stale.Title = "stale edit"
	stale.Version = 2
	assert.ErrorIs(t, s.Update(ctx, &stale, 1), domain.ErrConflict)

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Title)

	missing := newTask("ghost")
	assert.ErrorIs(t, s.Update(ctx, &missing, 1), domain.ErrNotFound)
}

func TestStore_ListAllAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	a, b := newTask("a"), newTask("b")
	require.NoError(t, s.Insert(ctx, &a))
	require.NoError(t, s.Insert(ctx, &b))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, a.ID))
	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)

	assert.ErrorIs(t, s.Delete(ctx, a.ID), domain.ErrNotFound)
}

func TestStore_HandsOutCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.New()
	task := newTask("isolated")
	task.Tags = []string{"keep"}
	require.NoError(t, s.Insert(ctx, &task))

	got, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Title = "mutated"

	again, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "isolated", again.Title)
	assert.Equal(t, []string{"keep"}, again.Tags)
}
