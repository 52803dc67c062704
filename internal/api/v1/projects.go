package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cptapp/cpt/internal/domain"
)

type ListProjectsOutput struct {
	Body []domain.ProjectSummary
}

type GetChangesOutput struct {
	Body struct {
		ChangeVersion uint64 `json:"change_version" doc:"Process-local change counter; diff against the last-seen value to detect updates"`
	}
}

func RegisterProjectRoutes(api huma.API, engine Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List project summaries with per-status counts",
		Tags:        []string{"Projects"},
	}, func(_ context.Context, _ *struct{}) (*ListProjectsOutput, error) {
		return &ListProjectsOutput{Body: engine.Summaries()}, nil
	})
}

func RegisterChangeRoutes(api huma.API, engine Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-changes",
		Method:      http.MethodGet,
		Path:        "/changes",
		Summary:     "Poll the change counter",
		Tags:        []string{"Changes"},
	}, func(_ context.Context, _ *struct{}) (*GetChangesOutput, error) {
		out := &GetChangesOutput{}
		out.Body.ChangeVersion = engine.ChangeVersion()
		return out, nil
	})
}
