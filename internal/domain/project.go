package domain

import "sort"

// ProjectSummary aggregates the tasks assigned to one project. A project
// is identified by its name; the identity is stable even as tasks move
// between statuses or projects.
type ProjectSummary struct {
	Project     string `json:"project"`
	Total       int    `json:"total"`
	NextActions int    `json:"next_actions"`
	Waiting     int    `json:"waiting"`
	Someday     int    `json:"someday"`
}

// SummarizeProjects groups tasks by project name and counts the statuses
// a weekly review cares about. Tasks without a project are skipped.
// Results are ordered by project name.
func SummarizeProjects(tasks []Task) []ProjectSummary {
	byName := make(map[string]*ProjectSummary)
	for _, t := range tasks {
		if t.Project == "" {
			continue
		}
		s, ok := byName[t.Project]
		if !ok {
			s = &ProjectSummary{Project: t.Project}
			byName[t.Project] = s
		}
		s.Total++
		switch t.Status {
		case StatusNext:
			s.NextActions++
		case StatusWaiting:
			s.Waiting++
		case StatusSomeday:
			s.Someday++
		}
	}

	summaries := make([]ProjectSummary, 0, len(byName))
	for _, s := range byName {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Project < summaries[j].Project
	})
	return summaries
}
