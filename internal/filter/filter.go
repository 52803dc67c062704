// Package filter evaluates faceted queries over an in-memory task
// collection. The engine is pure: it holds no state and re-evaluates on
// demand, so applying the same spec twice yields the same ordered result.
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/cptapp/cpt/internal/domain"
)

// SortField selects the primary ordering of a result.
type SortField string

const (
	SortCreated  SortField = "created"
	SortDue      SortField = "due"
	SortPriority SortField = "priority"
)

// ParseSortField resolves a user-supplied sort name.
func ParseSortField(s string) (SortField, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "created", "created_at", "created-at":
		return SortCreated, true
	case "due":
		return SortDue, true
	case "priority":
		return SortPriority, true
	default:
		return "", false
	}
}

// Spec is a faceted filter. Within a column the selected values are
// OR-ed: a task matches if it carries at least one of them. Across
// columns the constraints are AND-ed. Empty columns match everything,
// so the zero Spec returns the full collection.
type Spec struct {
	Statuses    []domain.TaskStatus
	Projects    []string
	Contexts    []string
	Tags        []string
	MinPriority *domain.Priority
	DueBefore   *time.Time
	Sort        SortField
	Reverse     bool
}

// Empty reports whether the spec imposes no constraint.
func (s Spec) Empty() bool {
	return len(s.Statuses) == 0 && len(s.Projects) == 0 &&
		len(s.Contexts) == 0 && len(s.Tags) == 0 &&
		s.MinPriority == nil && s.DueBefore == nil
}

// Matches reports whether t satisfies every non-empty facet column.
// Facet values match case-insensitively.
func (s Spec) Matches(t domain.Task) bool {
	if len(s.Statuses) > 0 && !containsStatus(s.Statuses, t.Status) {
		return false
	}
	if len(s.Projects) > 0 && !containsFold(s.Projects, t.Project) {
		return false
	}
	if len(s.Contexts) > 0 && !intersectsFold(s.Contexts, t.Contexts) {
		return false
	}
	if len(s.Tags) > 0 && !intersectsFold(s.Tags, t.Tags) {
		return false
	}
	if s.MinPriority != nil && t.Priority < *s.MinPriority {
		return false
	}
	if s.DueBefore != nil && (t.Due == nil || t.Due.After(*s.DueBefore)) {
		return false
	}
	return true
}

// Apply returns the ordered subsequence of tasks matching spec. The
// input is never mutated; ties always break on CreatedAt ascending and
// then ID so the ordering is fully deterministic.
func Apply(tasks []domain.Task, spec Spec) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if spec.Matches(t) {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], spec.Sort)
		if spec.Reverse {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return tieBreak(out[i], out[j])
	})
	return out
}

// compare orders a before b when negative. Due sorts unset dates last;
// priority sorts high first.
func compare(a, b domain.Task, field SortField) int {
	switch field {
	case SortDue:
		if c := compareDue(a.Due, b.Due); c != 0 {
			return c
		}
		return int(b.Priority - a.Priority)
	case SortPriority:
		if a.Priority != b.Priority {
			return int(b.Priority - a.Priority)
		}
		return compareDue(a.Due, b.Due)
	default:
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return compareTime(*a, *b)
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func tieBreak(a, b domain.Task) bool {
	if c := compareTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c < 0
	}
	return a.ID.String() < b.ID.String()
}

func containsStatus(set []domain.TaskStatus, status domain.TaskStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func containsFold(set []string, value string) bool {
	for _, s := range set {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}

func intersectsFold(selected, have []string) bool {
	for _, v := range have {
		if containsFold(selected, v) {
			return true
		}
	}
	return false
}
