package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cptapp/cpt/internal/domain"
)

const taskColumns = `id, title, notes, status, project, contexts, tags, priority, energy,
	time_estimate, due_at, defer_until, waiting_on, waiting_since,
	created_at, updated_at, completed_at, version`

func (s *Store) Insert(ctx context.Context, t *domain.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		t.ID, t.Title, t.Notes, t.Status, t.Project, t.Contexts, t.Tags,
		t.Priority, t.Energy, t.TimeEstimate, t.Due, t.Defer,
		t.WaitingOn, t.WaitingSince, t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.Version,
	)
	if err != nil {
		return unavailable("postgres.Insert", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres.Get: id %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("postgres.Get", err)
	}

	return t, nil
}

// Update persists t only when the stored version still matches
// expectedVersion. The check rides in the UPDATE's WHERE clause, so the
// compare-and-swap is atomic per row.
func (s *Store) Update(ctx context.Context, t *domain.Task, expectedVersion int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET
			title = $1, notes = $2, status = $3, project = $4, contexts = $5, tags = $6,
			priority = $7, energy = $8, time_estimate = $9, due_at = $10, defer_until = $11,
			waiting_on = $12, waiting_since = $13, updated_at = $14, completed_at = $15,
			version = $16
		 WHERE id = $17 AND version = $18`,
		t.Title, t.Notes, t.Status, t.Project, t.Contexts, t.Tags,
		t.Priority, t.Energy, t.TimeEstimate, t.Due, t.Defer,
		t.WaitingOn, t.WaitingSince, t.UpdatedAt, t.CompletedAt,
		t.Version, t.ID, expectedVersion,
	)
	if err != nil {
		return unavailable("postgres.Update", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row matched: either the id is gone or the version moved on.
	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists)
	if err != nil {
		return unavailable("postgres.Update", err)
	}
	if !exists {
		return fmt.Errorf("postgres.Update: id %s: %w", t.ID, domain.ErrNotFound)
	}
	return fmt.Errorf("postgres.Update: id %s: expected version %d: %w",
		t.ID, expectedVersion, domain.ErrConflict)
}

func (s *Store) ListAll(ctx context.Context) ([]*domain.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, unavailable("postgres.ListAll", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("postgres.ListAll: scan: %w", scanErr)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("postgres.ListAll", err)
	}

	return tasks, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return unavailable("postgres.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.Delete: id %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Notes, &t.Status, &t.Project, &t.Contexts, &t.Tags,
		&t.Priority, &t.Energy, &t.TimeEstimate, &t.Due, &t.Defer,
		&t.WaitingOn, &t.WaitingSince, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.Version,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
