package v1_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptapp/cpt/internal/domain"
)

// ---------------------------------------------------------------------------
// TestListProjects
// ---------------------------------------------------------------------------

func TestListProjects(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	captureTask(t, api, "draft roadmap +platform")
	second := captureTask(t, api, "fix login +platform")
	captureTask(t, api, "water plants +home")
	captureTask(t, api, "loose thought") // no project, must not appear

	resp := api.Post("/tasks/"+second.ID.String()+"/transition", map[string]any{"status": "next"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Get("/projects")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var summaries []domain.ProjectSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 2)

	// Sorted by project name.
	assert.Equal(t, "home", summaries[0].Project)
	assert.Equal(t, 1, summaries[0].Total)

	assert.Equal(t, "platform", summaries[1].Project)
	assert.Equal(t, 2, summaries[1].Total)
	assert.Equal(t, 1, summaries[1].NextActions)
}

// ---------------------------------------------------------------------------
// TestGetChanges
// ---------------------------------------------------------------------------

func TestGetChanges(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	readVersion := func() uint64 {
		resp := api.Get("/changes")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			ChangeVersion uint64 `json:"change_version"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body.ChangeVersion
	}

	before := readVersion()
	captureTask(t, api, "bump the counter")
	after := readVersion()

	assert.Greater(t, after, before, "a write must advance the change counter")
}
