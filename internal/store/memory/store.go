// Package memory is an in-process implementation of the storage
// collaborator. It backs tests and the ephemeral single-process mode;
// nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cptapp/cpt/internal/domain"
)

type Store struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
}

func New() *Store {
	return &Store{tasks: make(map[uuid.UUID]domain.Task)}
}

func (s *Store) Insert(_ context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("memory.Insert: id %s: %w", t.ID, domain.ErrConflict)
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("memory.Get: id %s: %w", id, domain.ErrNotFound)
	}
	c := t.Clone()
	return &c, nil
}

func (s *Store) Update(_ context.Context, t *domain.Task, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[t.ID]
	if !ok {
		return fmt.Errorf("memory.Update: id %s: %w", t.ID, domain.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("memory.Update: id %s: expected version %d, stored %d: %w",
			t.ID, expectedVersion, current.Version, domain.ErrConflict)
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Store) ListAll(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		c := t.Clone()
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("memory.Delete: id %s: %w", id, domain.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}
