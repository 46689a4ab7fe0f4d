package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/models"
)

func newCaseHandler(env *jobEnv) *CaseHandler {
	return NewCaseHandler(env.storage, env.auth, arbor.NewLogger())
}

func caseRequest(user *models.User, caseName, tail string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/cases/"+caseName+tail, nil)
	r.SetPathValue("name", caseName)
	return r.WithContext(WithPrincipal(r.Context(), user))
}

func TestCaseListScopes(t *testing.T) {
	env := newJobEnv(t)
	handler := newCaseHandler(env)

	list := func(user *models.User) []string {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		handler.List(w, r.WithContext(WithPrincipal(r.Context(), user)))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Cases []string `json:"cases"`
			Count int      `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, len(resp.Cases), resp.Count)
		return resp.Cases
	}

	assert.Equal(t, []string{"case-a", "case-b"}, list(env.admin))
	assert.Equal(t, []string{"case-a"}, list(env.manager))
	assert.Equal(t, []string{"case-a"}, list(env.analyst))
}

func TestCaseJobsFiltersByScope(t *testing.T) {
	env := newJobEnv(t)
	handler := newCaseHandler(env)

	jobsFor := func(user *models.User, caseName string) []models.Job {
		w := httptest.NewRecorder()
		handler.Jobs(w, caseRequest(user, caseName, "/jobs"))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Case  string       `json:"case"`
			Jobs  []models.Job `json:"jobs"`
			Count int          `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, caseName, resp.Case)
		assert.Equal(t, len(resp.Jobs), resp.Count)
		return resp.Jobs
	}

	assert.Len(t, jobsFor(env.admin, "case-a"), 2)
	assert.Len(t, jobsFor(env.manager, "case-a"), 2)

	jobs := jobsFor(env.analyst, "case-a")
	require.Len(t, jobs, 1)
	assert.Equal(t, "mgr1/ana1/j1", jobs[0].ID)

	// The other team's case reads as empty, not as an error
	assert.Empty(t, jobsFor(env.analyst, "case-b"))
}

func TestCaseJobsUnknownCase(t *testing.T) {
	env := newJobEnv(t)
	handler := newCaseHandler(env)

	w := httptest.NewRecorder()
	handler.Jobs(w, caseRequest(env.admin, "no-such-case", "/jobs"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs  []models.Job `json:"jobs"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
}

func TestCaseGraphReturnsNodesAndEdges(t *testing.T) {
	env := newJobEnv(t)
	handler := newCaseHandler(env)
	ctx := context.Background()

	node, err := env.storage.GraphStorage().UpsertNode(ctx, &models.GraphNode{
		CaseName: "case-a", Type: "person", Label: "Alice",
	})
	require.NoError(t, err)
	require.NoError(t, env.storage.GraphStorage().SaveEdge(ctx, &models.GraphEdge{
		ID: "edg_1", CaseName: "case-a", SourceNodeID: node.ID,
		TargetNodeID: node.ID, Type: "associated_with", ArtifactID: "art_1",
	}))

	w := httptest.NewRecorder()
	handler.Graph(w, caseRequest(env.analyst, "case-a", "/graph"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Case  string              `json:"case"`
		Nodes []*models.GraphNode `json:"nodes"`
		Edges []*models.GraphEdge `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "case-a", resp.Case)
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, "Alice", resp.Nodes[0].Label)
	require.Len(t, resp.Edges, 1)
}

func TestCaseGraphInvisibleCaseIsNotFound(t *testing.T) {
	env := newJobEnv(t)
	handler := newCaseHandler(env)

	// case-b has graph data but no jobs visible to this analyst
	_, err := env.storage.GraphStorage().UpsertNode(context.Background(), &models.GraphNode{
		CaseName: "case-b", Type: "person", Label: "Bob",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.Graph(w, caseRequest(env.analyst, "case-b", "/graph"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.Graph(w, caseRequest(env.admin, "never-seen", "/graph"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
