package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/services/auth"
)

// CaseHandler serves case listings and the per-case knowledge graph
type CaseHandler struct {
	storage interfaces.StorageManager
	auth    *auth.Service
	logger  arbor.ILogger
}

// NewCaseHandler creates the case handler
func NewCaseHandler(storage interfaces.StorageManager, authService *auth.Service, logger arbor.ILogger) *CaseHandler {
	return &CaseHandler{storage: storage, auth: authService, logger: logger}
}

// List handles GET /api/cases: the distinct case names visible to the caller
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	user := Principal(r)
	scope, err := h.auth.ScopeFor(r.Context(), user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to derive scope")
		WriteError(w, http.StatusInternalServerError, "Failed to derive scope")
		return
	}

	cases, err := h.storage.JobStorage().ListCases(r.Context(), scope)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list cases")
		WriteError(w, http.StatusInternalServerError, "Failed to list cases")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cases": cases,
		"count": len(cases),
	})
}

// Jobs handles GET /api/cases/{name}/jobs: the case's jobs visible to the
// caller
func (h *CaseHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	user := Principal(r)
	caseName := r.PathValue("name")

	scope, err := h.auth.ScopeFor(r.Context(), user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to derive scope")
		WriteError(w, http.StatusInternalServerError, "Failed to derive scope")
		return
	}

	jobs, err := h.storage.JobStorage().ListJobs(r.Context(), &interfaces.JobListOptions{
		CaseName: caseName,
		Scope:    scope,
		Limit:    QueryInt(r, "limit", 50),
		Offset:   QueryInt(r, "offset", 0),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("case", caseName).Msg("Failed to list case jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list case jobs")
		return
	}

	listings, err := withSuspectCounts(r.Context(), h.storage, jobs)
	if err != nil {
		h.logger.Error().Err(err).Str("case", caseName).Msg("Failed to count suspects")
		WriteError(w, http.StatusInternalServerError, "Failed to list case jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"case":  caseName,
		"jobs":  listings,
		"count": len(listings),
	})
}

// Graph handles GET /api/cases/{name}/graph. The case is visible when any
// of the caller's jobs belongs to it.
func (h *CaseHandler) Graph(w http.ResponseWriter, r *http.Request) {
	user := Principal(r)
	caseName := r.PathValue("name")
	ctx := r.Context()

	scope, err := h.auth.ScopeFor(ctx, user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to derive scope")
		WriteError(w, http.StatusInternalServerError, "Failed to derive scope")
		return
	}

	visible, err := h.storage.JobStorage().ListJobs(ctx, &interfaces.JobListOptions{
		CaseName: caseName,
		Scope:    scope,
		Limit:    1,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("case", caseName).Msg("Failed to check case visibility")
		WriteError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}
	if len(visible) == 0 {
		WriteError(w, http.StatusNotFound, "Case not found")
		return
	}

	nodes, err := h.storage.GraphStorage().GetNodesByCase(ctx, caseName)
	if err != nil {
		h.logger.Error().Err(err).Str("case", caseName).Msg("Failed to load graph nodes")
		WriteError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}
	edges, err := h.storage.GraphStorage().GetEdgesByCase(ctx, caseName)
	if err != nil {
		h.logger.Error().Err(err).Str("case", caseName).Msg("Failed to load graph edges")
		WriteError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"case":  caseName,
		"nodes": nodes,
		"edges": edges,
	})
}
