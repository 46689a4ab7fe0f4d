package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/services/auth"
)

// JobHandler serves job listings, detail, and results, filtered by the
// caller's RBAC scope. Out-of-scope jobs read as not found.
type JobHandler struct {
	storage interfaces.StorageManager
	auth    *auth.Service
	logger  arbor.ILogger
}

// NewJobHandler creates the job handler
func NewJobHandler(storage interfaces.StorageManager, authService *auth.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{storage: storage, auth: authService, logger: logger}
}

// jobIDFromRequest reassembles the hierarchical job ID from its three path
// segments
func jobIDFromRequest(r *http.Request) string {
	return r.PathValue("supervisor") + "/" + r.PathValue("owner") + "/" + r.PathValue("uid")
}

// scopedJob loads the requested job and applies the caller's scope. Returns
// nil after writing the response on any failure; out-of-scope jobs are
// indistinguishable from missing ones.
func scopedJob(w http.ResponseWriter, r *http.Request, storage interfaces.StorageManager, authService *auth.Service, logger arbor.ILogger) *models.Job {
	user := Principal(r)
	scope, err := authService.ScopeFor(r.Context(), user)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to derive scope")
		WriteError(w, http.StatusInternalServerError, "Failed to derive scope")
		return nil
	}

	jobID := jobIDFromRequest(r)
	job, err := storage.JobStorage().GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return nil
		}
		logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return nil
	}
	if !scope.Admits(job) {
		WriteError(w, http.StatusNotFound, "Job not found")
		return nil
	}
	return job
}

// jobListing is a job row enriched with its suspect count
type jobListing struct {
	*models.Job
	SuspectsCount int `json:"suspects_count"`
}

// withSuspectCounts attaches each job's suspect count to the listing
func withSuspectCounts(ctx context.Context, storage interfaces.StorageManager, jobs []*models.Job) ([]jobListing, error) {
	listings := make([]jobListing, 0, len(jobs))
	for _, job := range jobs {
		count, err := storage.SuspectStorage().CountSuspectsByJob(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		listings = append(listings, jobListing{Job: job, SuspectsCount: count})
	}
	return listings, nil
}

// caseFilter reads the case filter query param, accepting the documented
// case_name alongside the shorter case
func caseFilter(r *http.Request) string {
	if name := r.URL.Query().Get("case_name"); name != "" {
		return name
	}
	return r.URL.Query().Get("case")
}

// List handles GET /api/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	user := Principal(r)
	scope, err := h.auth.ScopeFor(r.Context(), user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to derive scope")
		WriteError(w, http.StatusInternalServerError, "Failed to derive scope")
		return
	}

	jobs, err := h.storage.JobStorage().ListJobs(r.Context(), &interfaces.JobListOptions{
		CaseName: caseFilter(r),
		Scope:    scope,
		Limit:    QueryInt(r, "limit", 50),
		Offset:   QueryInt(r, "offset", 0),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	listings, err := withSuspectCounts(r.Context(), h.storage, jobs)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count suspects")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  listings,
		"count": len(listings),
	})
}

// Get handles GET /api/jobs/{supervisor}/{owner}/{uid}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job := scopedJob(w, r, h.storage, h.auth, h.logger)
	if job == nil {
		return
	}

	artifacts, err := h.storage.ArtifactStorage().GetArtifactsByJob(r.Context(), job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to load artifacts")
		WriteError(w, http.StatusInternalServerError, "Failed to load artifacts")
		return
	}

	suspectsCount, err := h.storage.SuspectStorage().CountSuspectsByJob(r.Context(), job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to count suspects")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job":       jobListing{Job: job, SuspectsCount: suspectsCount},
		"artifacts": artifacts,
	})
}

// Results handles GET /api/jobs/{supervisor}/{owner}/{uid}/results
func (h *JobHandler) Results(w http.ResponseWriter, r *http.Request) {
	job := scopedJob(w, r, h.storage, h.auth, h.logger)
	if job == nil {
		return
	}
	ctx := r.Context()

	artifacts, err := h.storage.ArtifactStorage().GetArtifactsByJob(ctx, job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to load artifacts")
		WriteError(w, http.StatusInternalServerError, "Failed to load results")
		return
	}
	suspects, err := h.storage.SuspectStorage().GetSuspectsByJob(ctx, job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to load suspects")
		WriteError(w, http.StatusInternalServerError, "Failed to load results")
		return
	}

	type artifactResult struct {
		*models.Artifact
		Edges []*models.GraphEdge `json:"graph_edges,omitempty"`
	}
	results := make([]artifactResult, 0, len(artifacts))
	for _, artifact := range artifacts {
		edges, err := h.storage.GraphStorage().GetEdgesByArtifact(ctx, artifact.ID)
		if err != nil {
			h.logger.Error().Err(err).Str("artifact_id", artifact.ID).Msg("Failed to load edges")
			WriteError(w, http.StatusInternalServerError, "Failed to load results")
			return
		}
		results = append(results, artifactResult{Artifact: artifact, Edges: edges})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job":       job,
		"artifacts": results,
		"suspects":  suspects,
	})
}
