// Package syncer owns the canonical in-memory task collection backed by
// the persistent store. All reads and writes from front-end threads go
// through a Synchronizer; a periodic refresh reconciles writes made by
// sibling processes sharing the same store.
//
// Consistency is read-your-own-writes immediately, peers' writes within
// one refresh interval. Mutations use optimistic concurrency on the
// task version; the collection is never locked around a store write.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cptapp/cpt/internal/capture"
	"github.com/cptapp/cpt/internal/domain"
	"github.com/cptapp/cpt/internal/filter"
	"github.com/cptapp/cpt/internal/notify"
)

// DefaultRefreshInterval bounds how stale a snapshot may get relative to
// sibling processes.
const DefaultRefreshInterval = 5 * time.Second

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithInterval overrides the refresh cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.interval = d }
}

// WithPublisher announces persisted changes on a best-effort channel.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Synchronizer) { s.publisher = p }
}

// WithCaptureOptions adjusts the capture parser policy (e.g. strict
// token handling). The reference clock is always the synchronizer's.
func WithCaptureOptions(opts ...capture.Option) Option {
	return func(s *Synchronizer) { s.captureOpts = opts }
}

// Synchronizer serializes access to one persistent task store.
type Synchronizer struct {
	store       domain.Store
	clock       domain.Clock
	parser      *capture.Parser
	interval    time.Duration
	publisher   notify.Publisher
	captureOpts []capture.Option

	mu    sync.RWMutex
	tasks map[uuid.UUID]domain.Task

	// changeVersion bumps on every applied change, local or pulled.
	// Front-ends diff it against their last-seen value.
	changeVersion atomic.Uint64
}

func New(store domain.Store, clock domain.Clock, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		clock:    clock,
		interval: DefaultRefreshInterval,
		tasks:    make(map[uuid.UUID]domain.Task),
	}
	for _, opt := range opts {
		opt(s)
	}
	parserOpts := append([]capture.Option{capture.WithClock(clock)}, s.captureOpts...)
	s.parser = capture.NewParser(parserOpts...)
	return s
}

// Load primes the snapshot from the store. Call once before serving.
func (s *Synchronizer) Load(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("syncer.Load: %w", err)
	}
	return nil
}

// Capture parses raw text and persists the resulting draft.
func (s *Synchronizer) Capture(ctx context.Context, text string) (domain.Task, error) {
	draft, err := s.parser.Parse(text)
	if err != nil {
		return domain.Task{}, err
	}
	return s.Create(ctx, draft)
}

// Create assigns identity to a draft and persists it. New tasks start at
// version 1 in the draft's status (inbox unless the capture said
// otherwise).
func (s *Synchronizer) Create(ctx context.Context, draft capture.Draft) (domain.Task, error) {
	status := draft.Status
	if status == "" {
		status = domain.StatusInbox
	}
	if !status.Valid() {
		return domain.Task{}, fmt.Errorf("syncer.Create: status %q: %w", status, domain.ErrIllegalTransition)
	}

	now := s.clock.Now()
	t := domain.Task{
		ID:           uuid.New(),
		Title:        draft.Title,
		Notes:        draft.Notes,
		Status:       status,
		Project:      draft.Project,
		Contexts:     append([]string(nil), draft.Contexts...),
		Tags:         append([]string(nil), draft.Tags...),
		Priority:     draft.Priority,
		Energy:       draft.Energy,
		TimeEstimate: draft.TimeEstimate,
		Due:          draft.Due,
		Defer:        draft.Defer,
		WaitingOn:    draft.WaitingOn,
		WaitingSince: draft.WaitingSince,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	if err := s.store.Insert(ctx, &t); err != nil {
		return domain.Task{}, err
	}

	s.apply(t)
	s.announce(ctx, notify.Event{ID: t.ID, Version: t.Version})
	return t, nil
}

// ResolveDate resolves a capture date expression ("tomorrow", "+2w",
// "2026-01-15") against the synchronizer's reference clock.
func (s *Synchronizer) ResolveDate(spec string) (time.Time, error) {
	return s.parser.ResolveDate(spec)
}

// Get returns the cached task by id.
func (s *Synchronizer) Get(id uuid.UUID) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, fmt.Errorf("syncer.Get: id %s: %w", id, domain.ErrNotFound)
	}
	return t.Clone(), nil
}

// List returns a consistent snapshot of every task, ordered by creation
// time (then id, for a fully deterministic sequence).
func (s *Synchronizer) List() []domain.Task {
	s.mu.RLock()
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Query evaluates a faceted filter over the current snapshot.
func (s *Synchronizer) Query(spec filter.Spec) []domain.Task {
	return filter.Apply(s.List(), spec)
}

// Summaries aggregates the snapshot's tasks by project.
func (s *Synchronizer) Summaries() []domain.ProjectSummary {
	return domain.SummarizeProjects(s.List())
}

// Update applies mutator to a copy of the task and persists it with the
// version the snapshot last observed. A sibling's interleaved write
// surfaces as ErrConflict; the caller re-reads and retries. Status is
// off-limits to mutators; state changes go through Transition.
func (s *Synchronizer) Update(ctx context.Context, id uuid.UUID, mutator func(*domain.Task) error) (domain.Task, error) {
	current, err := s.Get(id)
	if err != nil {
		return domain.Task{}, err
	}

	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return domain.Task{}, fmt.Errorf("syncer.Update: mutator: %w", err)
	}
	if updated.Status != current.Status {
		return domain.Task{}, fmt.Errorf("syncer.Update: status must change via Transition: %w", domain.ErrIllegalTransition)
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.clock.Now()
	updated.Version = current.Version + 1

	return s.persist(ctx, updated, current.Version)
}

// Transition moves the task through the lifecycle state machine. A
// self-transition is a no-op success and persists nothing.
func (s *Synchronizer) Transition(ctx context.Context, id uuid.UUID, target domain.TaskStatus) (domain.Task, error) {
	current, err := s.Get(id)
	if err != nil {
		return domain.Task{}, err
	}

	updated, err := domain.Transition(current, target, s.clock.Now())
	if err != nil {
		return domain.Task{}, err
	}
	if updated.Version == current.Version {
		return updated, nil
	}

	return s.persist(ctx, updated, current.Version)
}

// Reopen explicitly moves a done task back to inbox.
func (s *Synchronizer) Reopen(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	current, err := s.Get(id)
	if err != nil {
		return domain.Task{}, err
	}

	updated, err := domain.Reopen(current, s.clock.Now())
	if err != nil {
		return domain.Task{}, err
	}

	return s.persist(ctx, updated, current.Version)
}

// Delete removes a task from the store and the snapshot. This is an
// administrative operation; the lifecycle itself never hard-deletes.
func (s *Synchronizer) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
	s.changeVersion.Add(1)

	s.announce(ctx, notify.Event{ID: id, Deleted: true})
	return nil
}

// persist writes the updated task with an optimistic version check and
// folds it into the snapshot on success. On conflict the persisted task
// is pulled forward best-effort so the caller's re-read sees it.
func (s *Synchronizer) persist(ctx context.Context, updated domain.Task, expectedVersion int64) (domain.Task, error) {
	err := s.store.Update(ctx, &updated, expectedVersion)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.pullForward(ctx, updated.ID)
		}
		return domain.Task{}, err
	}

	s.apply(updated)
	s.announce(ctx, notify.Event{ID: updated.ID, Version: updated.Version})
	return updated, nil
}

// apply folds t into the snapshot unless the cached copy is already as
// new. Called for both local writes and refresh pulls, so a version can
// never go backwards.
func (s *Synchronizer) apply(t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.tasks[t.ID]
	if ok && cached.Version >= t.Version {
		return
	}
	s.tasks[t.ID] = t.Clone()
	s.changeVersion.Add(1)
}

func (s *Synchronizer) pullForward(ctx context.Context, id uuid.UUID) {
	latest, err := s.store.Get(ctx, id)
	if err != nil {
		return
	}
	s.apply(*latest)
}

// ChangeVersion returns the process-local change counter. It increases
// whenever any task changes in the snapshot, from either a local write
// or a refresh pull.
func (s *Synchronizer) ChangeVersion() uint64 {
	return s.changeVersion.Load()
}

// Refresh reconciles the snapshot with the store: tasks whose persisted
// version is newer are pulled forward, tasks gone from the store are
// dropped. Cached tasks with local state at least as new are left
// untouched, so Refresh is safe to run concurrently with Create and
// Update.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	started := s.clock.Now()

	persisted, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := uint64(0)
	seen := make(map[uuid.UUID]struct{}, len(persisted))
	for _, t := range persisted {
		seen[t.ID] = struct{}{}
		cached, ok := s.tasks[t.ID]
		if ok && cached.Version >= t.Version {
			continue
		}
		s.tasks[t.ID] = t.Clone()
		changed++
	}

	for id, cached := range s.tasks {
		if _, ok := seen[id]; ok {
			continue
		}
		// A task created locally while ListAll was in flight is not in
		// the listing; its UpdatedAt is newer than the refresh start.
		if !cached.UpdatedAt.Before(started) {
			continue
		}
		delete(s.tasks, id)
		changed++
	}

	if changed > 0 {
		s.changeVersion.Add(changed)
	}
	return nil
}

// Run refreshes on a fixed cadence until ctx is canceled. A failed
// refresh is logged and swallowed; the last good snapshot stays
// authoritative until the next successful tick.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("refresh failed; keeping last snapshot")
			}
		}
	}
}

func (s *Synchronizer) announce(ctx context.Context, ev notify.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Debug().Err(err).Str("task_id", ev.ID.String()).Msg("change notify failed")
	}
}
