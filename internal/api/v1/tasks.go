package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/cptapp/cpt/internal/capture"
	"github.com/cptapp/cpt/internal/domain"
	"github.com/cptapp/cpt/internal/filter"
)

type CaptureTaskInput struct {
	Body struct {
		Text string `json:"text" minLength:"1" maxLength:"2000" doc:"Raw capture text with inline tokens (@context +project #tag due:... priority:...)"`
	}
}

type CaptureTaskOutput struct {
	Body domain.Task
}

type ListTasksInput struct {
	Status      string `query:"status" doc:"Comma-separated statuses (OR within the column)"`
	Project     string `query:"project" doc:"Comma-separated project names"`
	Context     string `query:"context" doc:"Comma-separated contexts"`
	Tag         string `query:"tag" doc:"Comma-separated tags"`
	MinPriority string `query:"min_priority" doc:"Priority threshold (none|low|medium|high)"`
	DueBefore   string `query:"due_before" doc:"Only tasks due at or before this date expression"`
	Sort        string `query:"sort" doc:"Sort field (created|due|priority)"`
	Reverse     bool   `query:"reverse" doc:"Reverse the sort order"`
}

type ListTasksOutput struct {
	Body []domain.Task
}

type GetTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type GetTaskOutput struct {
	Body domain.Task
}

type EditTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Title        *string   `json:"title,omitempty" maxLength:"500" doc:"New title"`
		Notes        *string   `json:"notes,omitempty" doc:"New notes"`
		Project      *string   `json:"project,omitempty" doc:"New project (empty clears)"`
		Contexts     *[]string `json:"contexts,omitempty" doc:"Replacement context set"`
		Tags         *[]string `json:"tags,omitempty" doc:"Replacement tag set"`
		Priority     *string   `json:"priority,omitempty" doc:"Priority (none|low|medium|high or 0-3)"`
		Energy       *string   `json:"energy,omitempty" doc:"Energy level (low|med|high, empty clears)"`
		TimeEstimate *int      `json:"time_estimate,omitempty" minimum:"0" doc:"Time estimate in minutes (0 clears)"`
		Due          *string   `json:"due,omitempty" doc:"Due date expression (empty clears)"`
		Defer        *string   `json:"defer,omitempty" doc:"Defer date expression (empty clears)"`
		WaitingOn    *string   `json:"waiting_on,omitempty" doc:"Who the task is waiting on (empty clears)"`
	}
}

type EditTaskOutput struct {
	Body domain.Task
}

type TransitionTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Status string `json:"status" minLength:"1" doc:"Target status"`
	}
}

type TransitionTaskOutput struct {
	Body domain.Task
}

type ReopenTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type ReopenTaskOutput struct {
	Body domain.Task
}

type DeleteTaskInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

func RegisterTaskRoutes(api huma.API, engine Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "capture-task",
		Method:      http.MethodPost,
		Path:        "/tasks",
		Summary:     "Capture a task from raw text",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *CaptureTaskInput) (*CaptureTaskOutput, error) {
		t, err := engine.Capture(ctx, input.Body.Text)
		if err != nil {
			return nil, mapError(err, "capture failed")
		}
		return &CaptureTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks matching a faceted filter",
		Tags:        []string{"Tasks"},
	}, func(_ context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		spec, err := buildSpec(engine, input)
		if err != nil {
			return nil, err
		}
		return &ListTasksOutput{Body: engine.Query(spec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task by ID",
		Tags:        []string{"Tasks"},
	}, func(_ context.Context, input *GetTaskInput) (*GetTaskOutput, error) {
		t, err := engine.Get(input.ID)
		if err != nil {
			return nil, mapError(err, "get failed")
		}
		return &GetTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Edit task fields",
		Description: "Status is not editable here; use the transition endpoint.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *EditTaskInput) (*EditTaskOutput, error) {
		mutator, err := buildMutator(engine, input)
		if err != nil {
			return nil, err
		}
		t, err := engine.Update(ctx, input.ID, mutator)
		if err != nil {
			return nil, mapError(err, "edit failed")
		}
		return &EditTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/transition",
		Summary:     "Move a task to another workflow status",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TransitionTaskInput) (*TransitionTaskOutput, error) {
		status, err := domain.ParseStatus(input.Body.Status)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		t, err := engine.Transition(ctx, input.ID, status)
		if err != nil {
			return nil, mapError(err, "transition failed")
		}
		return &TransitionTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reopen-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/reopen",
		Summary:     "Reopen a done task back to inbox",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ReopenTaskInput) (*ReopenTaskOutput, error) {
		t, err := engine.Reopen(ctx, input.ID)
		if err != nil {
			return nil, mapError(err, "reopen failed")
		}
		return &ReopenTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task permanently",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*struct{}, error) {
		if err := engine.Delete(ctx, input.ID); err != nil {
			return nil, mapError(err, "delete failed")
		}
		return nil, nil
	})
}

func buildSpec(engine Engine, input *ListTasksInput) (filter.Spec, error) {
	spec := filter.Spec{
		Projects: splitList(input.Project),
		Contexts: splitList(input.Context),
		Tags:     splitList(input.Tag),
		Reverse:  input.Reverse,
	}

	for _, s := range splitList(input.Status) {
		status, err := domain.ParseStatus(s)
		if err != nil {
			return filter.Spec{}, huma.Error422UnprocessableEntity(err.Error())
		}
		spec.Statuses = append(spec.Statuses, status)
	}

	if input.MinPriority != "" {
		p, err := domain.ParsePriority(input.MinPriority)
		if err != nil {
			return filter.Spec{}, huma.Error422UnprocessableEntity(err.Error())
		}
		spec.MinPriority = &p
	}

	if input.DueBefore != "" {
		due, err := engine.ResolveDate(input.DueBefore)
		if err != nil {
			return filter.Spec{}, huma.Error422UnprocessableEntity(err.Error())
		}
		spec.DueBefore = &due
	}

	sortField, ok := filter.ParseSortField(input.Sort)
	if !ok {
		return filter.Spec{}, huma.Error422UnprocessableEntity("unknown sort field: expected created|due|priority")
	}
	spec.Sort = sortField

	return spec, nil
}

// buildMutator resolves the patch body up front so date or priority
// errors reject the request before any write is attempted.
func buildMutator(engine Engine, input *EditTaskInput) (func(*domain.Task) error, error) {
	body := &input.Body

	var priority *domain.Priority
	if body.Priority != nil {
		p, err := domain.ParsePriority(*body.Priority)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		priority = &p
	}

	var energy *domain.EnergyLevel
	if body.Energy != nil {
		if *body.Energy == "" {
			cleared := domain.EnergyLevel("")
			energy = &cleared
		} else {
			e, err := domain.ParseEnergy(*body.Energy)
			if err != nil {
				return nil, huma.Error422UnprocessableEntity(err.Error())
			}
			energy = &e
		}
	}

	due, err := resolveOptionalDate(engine, body.Due)
	if err != nil {
		return nil, err
	}
	deferUntil, err := resolveOptionalDate(engine, body.Defer)
	if err != nil {
		return nil, err
	}

	return func(t *domain.Task) error {
		if body.Title != nil {
			t.Title = strings.TrimSpace(*body.Title)
		}
		if body.Notes != nil {
			t.Notes = *body.Notes
		}
		if body.Project != nil {
			t.Project = strings.TrimSpace(*body.Project)
		}
		if body.Contexts != nil {
			t.Contexts = dedupeLabels(*body.Contexts)
		}
		if body.Tags != nil {
			t.Tags = dedupeLabels(*body.Tags)
		}
		if priority != nil {
			t.Priority = *priority
		}
		if energy != nil {
			t.Energy = *energy
		}
		if body.TimeEstimate != nil {
			t.TimeEstimate = *body.TimeEstimate
		}
		if body.Due != nil {
			t.Due = due
		}
		if body.Defer != nil {
			t.Defer = deferUntil
		}
		if body.WaitingOn != nil {
			t.WaitingOn = strings.TrimSpace(*body.WaitingOn)
		}
		return nil
	}, nil
}

// resolveOptionalDate maps nil to no-change, "" to clear, and anything
// else through the capture date grammar.
func resolveOptionalDate(engine Engine, spec *string) (*time.Time, error) {
	if spec == nil || *spec == "" {
		return nil, nil
	}
	resolved, err := engine.ResolveDate(*spec)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	return &resolved, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupeLabels(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if strings.EqualFold(existing, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// mapError translates domain errors to HTTP problems.
func mapError(err error, fallback string) error {
	var parseErr *capture.ParseError
	switch {
	case errors.As(err, &parseErr):
		return huma.Error422UnprocessableEntity(parseErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("task not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("task was modified concurrently; re-read and retry")
	case errors.Is(err, domain.ErrIllegalTransition):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		return huma.Error503ServiceUnavailable("storage unavailable")
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}
