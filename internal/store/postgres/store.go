// Package postgres implements the storage collaborator on PostgreSQL
// via pgxpool. Each task row carries a version column; writes are atomic
// per row, which is all the synchronizer requires.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cptapp/cpt/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id            UUID PRIMARY KEY,
			title         TEXT NOT NULL,
			notes         TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			project       TEXT NOT NULL DEFAULT '',
			contexts      TEXT[] NOT NULL DEFAULT '{}',
			tags          TEXT[] NOT NULL DEFAULT '{}',
			priority      INT NOT NULL DEFAULT 0,
			energy        TEXT NOT NULL DEFAULT '',
			time_estimate INT NOT NULL DEFAULT 0,
			due_at        TIMESTAMPTZ,
			defer_until   TIMESTAMPTZ,
			waiting_on    TEXT NOT NULL DEFAULT '',
			waiting_since TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			completed_at  TIMESTAMPTZ,
			version       BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project);
		CREATE INDEX IF NOT EXISTS idx_tasks_version ON tasks(version);
	`)
	if err != nil {
		return fmt.Errorf("postgres.ensureSchema: %w", err)
	}
	return nil
}

// unavailable tags err with the domain sentinel so callers can treat a
// dead backend differently from a bad request.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
