package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is a GTD workflow bucket. Every capture starts in inbox;
// done is terminal.
type TaskStatus string

const (
	StatusInbox     TaskStatus = "inbox"
	StatusNext      TaskStatus = "next"
	StatusWaiting   TaskStatus = "waiting"
	StatusScheduled TaskStatus = "scheduled"
	StatusSomeday   TaskStatus = "someday"
	StatusDone      TaskStatus = "done"
)

// Statuses lists all workflow buckets in display order.
var Statuses = []TaskStatus{
	StatusInbox, StatusNext, StatusWaiting, StatusScheduled, StatusSomeday, StatusDone,
}

// CanTransition reports whether moving from s to target is a legal edge.
// Every non-terminal status may move to any other status including done;
// done has no outbound edges (reopening is a separate explicit operation).
func (s TaskStatus) CanTransition(target TaskStatus) bool {
	if !s.Valid() || !target.Valid() {
		return false
	}
	if s == StatusDone {
		return false
	}
	return target != s
}

// Valid reports whether s is one of the six workflow buckets.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusInbox, StatusNext, StatusWaiting, StatusScheduled, StatusSomeday, StatusDone:
		return true
	default:
		return false
	}
}

// ParseStatus resolves a user-supplied status name.
func ParseStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q: expected inbox|next|waiting|scheduled|someday|done", s)
	}
	return status, nil
}

// Priority is an ordered urgency level.
type Priority int

const (
	PriorityNone   Priority = 0
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityNone && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "none"
	}
}

// ParsePriority resolves a priority name or numeric shorthand (0-3).
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0":
		return PriorityNone, nil
	case "low", "1":
		return PriorityLow, nil
	case "medium", "med", "2":
		return PriorityMedium, nil
	case "high", "3":
		return PriorityHigh, nil
	default:
		return PriorityNone, fmt.Errorf("unknown priority %q: expected none|low|medium|high or 0-3", s)
	}
}

// EnergyLevel is the energy a task demands. Empty means unset.
type EnergyLevel string

const (
	EnergyLow  EnergyLevel = "low"
	EnergyMed  EnergyLevel = "med"
	EnergyHigh EnergyLevel = "high"
)

// ParseEnergy resolves an energy level name.
func ParseEnergy(s string) (EnergyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return EnergyLow, nil
	case "med", "medium":
		return EnergyMed, nil
	case "high":
		return EnergyHigh, nil
	default:
		return "", fmt.Errorf("unknown energy level %q: expected low|med|high", s)
	}
}

// Task is the central entity shared by every front-end.
//
// Contexts and Tags are sets: no case-insensitive duplicates, original
// casing preserved for display. Version strictly increases on every
// persisted mutation and drives both optimistic concurrency and
// cross-process change detection.
type Task struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Notes        string      `json:"notes,omitempty"`
	Status       TaskStatus  `json:"status"`
	Project      string      `json:"project,omitempty"`
	Contexts     []string    `json:"contexts,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Priority     Priority    `json:"priority"`
	Energy       EnergyLevel `json:"energy,omitempty"`
	TimeEstimate int         `json:"time_estimate,omitempty"` // minutes, 0 = unset
	Due          *time.Time  `json:"due,omitempty"`
	Defer        *time.Time  `json:"defer,omitempty"`
	WaitingOn    string      `json:"waiting_on,omitempty"`
	WaitingSince *time.Time  `json:"waiting_since,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Version      int64       `json:"version"`
}

// Clone returns a deep copy so snapshot readers never share slices or
// pointers with the canonical task.
func (t Task) Clone() Task {
	c := t
	c.Contexts = append([]string(nil), t.Contexts...)
	c.Tags = append([]string(nil), t.Tags...)
	c.Due = cloneTime(t.Due)
	c.Defer = cloneTime(t.Defer)
	c.WaitingSince = cloneTime(t.WaitingSince)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Transition applies the state machine to t and returns the updated copy.
//
// A self-transition is a no-op success: the task is returned unchanged
// with no version bump. Any other edge outside the legal set fails with
// ErrIllegalTransition; the request is never rerouted or clamped.
func Transition(t Task, target TaskStatus, now time.Time) (Task, error) {
	if !target.Valid() {
		return Task{}, fmt.Errorf("transition %s -> %s: %w", t.Status, target, ErrIllegalTransition)
	}
	if target == t.Status {
		return t, nil
	}
	if !t.Status.CanTransition(target) {
		return Task{}, fmt.Errorf("transition %s -> %s: %w", t.Status, target, ErrIllegalTransition)
	}

	t.Status = target
	if target == StatusDone {
		completed := now
		t.CompletedAt = &completed
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	t.Version++
	return t, nil
}

// Reopen moves a done task back to inbox. This is deliberately not part
// of the normal transition table: reopening must be an explicit request.
func Reopen(t Task, now time.Time) (Task, error) {
	if t.Status != StatusDone {
		return Task{}, fmt.Errorf("reopen %s: %w", t.Status, ErrIllegalTransition)
	}
	t.Status = StatusInbox
	t.CompletedAt = nil
	t.UpdatedAt = now
	t.Version++
	return t, nil
}
