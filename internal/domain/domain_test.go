package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptapp/cpt/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. TaskStatus.CanTransition — full 6x6 state-machine matrix.
// ---------------------------------------------------------------------------

func TestTaskStatus_CanTransition(t *testing.T) {
	t.Parallel()

	nonTerminal := []domain.TaskStatus{
		domain.StatusInbox, domain.StatusNext, domain.StatusWaiting,
		domain.StatusScheduled, domain.StatusSomeday,
	}

	// Every non-terminal status reaches every other status.
	for _, from := range nonTerminal {
		for _, to := range domain.Statuses {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				t.Parallel()

				got := from.CanTransition(to)
				if from == to {
					assert.False(t, got, "self-edge is not part of the table")
				} else {
					assert.True(t, got)
				}
			})
		}
	}

	// Done has an empty outbound edge set.
	for _, to := range domain.Statuses {
		to := to
		t.Run("done->"+string(to), func(t *testing.T) {
			t.Parallel()

			assert.False(t, domain.StatusDone.CanTransition(to))
		})
	}
}

func TestTaskStatus_CanTransition_UnknownStatus(t *testing.T) {
	t.Parallel()

	unknown := domain.TaskStatus("archived")
	for _, to := range domain.Statuses {
		assert.False(t, unknown.CanTransition(to))
	}
	assert.False(t, domain.StatusInbox.CanTransition(unknown))
}

// ---------------------------------------------------------------------------
// 2. Transition — totality, version bump, completed-at handling.
// ---------------------------------------------------------------------------

func TestTransition(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	base := domain.Task{
		ID:        uuid.New(),
		Title:     "Call Sam",
		Status:    domain.StatusInbox,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
		Version:   1,
	}

	t.Run("legal_edge_updates_state_and_version", func(t *testing.T) {
		t.Parallel()

		got, err := domain.Transition(base, domain.StatusNext, now)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNext, got.Status)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, now, got.UpdatedAt)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("self_transition_is_noop_success", func(t *testing.T) {
		t.Parallel()

		got, err := domain.Transition(base, domain.StatusInbox, now)
		require.NoError(t, err)
		assert.Equal(t, base, got, "no-op must not bump version or timestamps")
	})

	t.Run("done_sets_completed_at", func(t *testing.T) {
		t.Parallel()

		got, err := domain.Transition(base, domain.StatusDone, now)
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, now, *got.CompletedAt)
	})

	t.Run("done_is_terminal", func(t *testing.T) {
		t.Parallel()

		done, err := domain.Transition(base, domain.StatusDone, now)
		require.NoError(t, err)

		for _, target := range domain.Statuses {
			if target == domain.StatusDone {
				continue
			}
			_, err := domain.Transition(done, target, now)
			assert.ErrorIs(t, err, domain.ErrIllegalTransition, "done -> %s", target)
		}
	})

	t.Run("invalid_target_rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.Transition(base, domain.TaskStatus("archived"), now)
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	})

	t.Run("totality_over_all_pairs", func(t *testing.T) {
		t.Parallel()

		for _, from := range domain.Statuses {
			for _, to := range domain.Statuses {
				task := base
				task.Status = from
				if from == domain.StatusDone {
					completed := now
					task.CompletedAt = &completed
				}

				got, err := domain.Transition(task, to, now)
				if err != nil {
					assert.ErrorIs(t, err, domain.ErrIllegalTransition)
					continue
				}
				assert.Equal(t, to, got.Status)
				assert.GreaterOrEqual(t, got.Version, task.Version, "version never decreases")
			}
		}
	})
}

func TestReopen(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	completed := now.Add(-time.Hour)
	done := domain.Task{
		ID:          uuid.New(),
		Title:       "Ship release",
		Status:      domain.StatusDone,
		CompletedAt: &completed,
		Version:     4,
	}

	t.Run("done_reopens_to_inbox", func(t *testing.T) {
		t.Parallel()

		got, err := domain.Reopen(done, now)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInbox, got.Status)
		assert.Nil(t, got.CompletedAt)
		assert.Equal(t, int64(5), got.Version)
	})

	t.Run("non_done_is_rejected", func(t *testing.T) {
		t.Parallel()

		open := done
		open.Status = domain.StatusNext
		_, err := domain.Reopen(open, now)
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	})
}

// ---------------------------------------------------------------------------
// 3. Parse helpers.
// ---------------------------------------------------------------------------

func TestParseStatus(t *testing.T) {
	t.Parallel()

	got, err := domain.ParseStatus("  Next ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNext, got)

	_, err = domain.ParseStatus("canceled")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want domain.Priority
		ok   bool
	}{
		{"high", domain.PriorityHigh, true},
		{"3", domain.PriorityHigh, true},
		{"med", domain.PriorityMedium, true},
		{"Medium", domain.PriorityMedium, true},
		{"low", domain.PriorityLow, true},
		{"none", domain.PriorityNone, true},
		{"0", domain.PriorityNone, true},
		{"urgent", 0, false},
		{"7", 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := domain.ParsePriority(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriority_Ordering(t *testing.T) {
	t.Parallel()

	assert.Less(t, domain.PriorityNone, domain.PriorityLow)
	assert.Less(t, domain.PriorityLow, domain.PriorityMedium)
	assert.Less(t, domain.PriorityMedium, domain.PriorityHigh)
}

// ---------------------------------------------------------------------------
// 4. Clone — snapshot readers must not share memory with the canonical task.
// ---------------------------------------------------------------------------

func TestTask_Clone(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	orig := domain.Task{
		ID:       uuid.New(),
		Title:    "Plan retreat",
		Contexts: []string{"office"},
		Tags:     []string{"q2"},
		Due:      &due,
	}

	clone := orig.Clone()
	clone.Contexts[0] = "home"
	clone.Tags = append(clone.Tags, "later")
	*clone.Due = due.AddDate(0, 1, 0)

	assert.Equal(t, "office", orig.Contexts[0])
	assert.Equal(t, []string{"q2"}, orig.Tags)
	assert.Equal(t, due, *orig.Due)
}

// ---------------------------------------------------------------------------
// 5. SummarizeProjects.
// ---------------------------------------------------------------------------

func TestSummarizeProjects(t *testing.T) {
	t.Parallel()

	tasks := []domain.Task{
		{Project: "website", Status: domain.StatusNext},
		{Project: "website", Status: domain.StatusWaiting},
		{Project: "website", Status: domain.StatusSomeday},
		{Project: "website", Status: domain.StatusDone},
		{Project: "alpha", Status: domain.StatusInbox},
		{Status: domain.StatusNext}, // no project, skipped
	}

	got := domain.SummarizeProjects(tasks)
	require.Len(t, got, 2)

	assert.Equal(t, "alpha", got[0].Project)
	assert.Equal(t, 1, got[0].Total)

	website := got[1]
	assert.Equal(t, "website", website.Project)
	assert.Equal(t, 4, website.Total)
	assert.Equal(t, 1, website.NextActions)
	assert.Equal(t, 1, website.Waiting)
	assert.Equal(t, 1, website.Someday)
}
