package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/services/auth"
)

// SearchHandler serves semantic search over a job's retrieval chunks
type SearchHandler struct {
	storage  interfaces.StorageManager
	embedder interfaces.Embedder
	index    interfaces.VectorIndex
	auth     *auth.Service
	logger   arbor.ILogger
}

// NewSearchHandler creates the search handler
func NewSearchHandler(storage interfaces.StorageManager, embedder interfaces.Embedder, index interfaces.VectorIndex, authService *auth.Service, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{storage: storage, embedder: embedder, index: index, auth: authService, logger: logger}
}

// Search handles GET /api/jobs/{supervisor}/{owner}/{uid}/search?q=...&k=...
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	job := scopedJob(w, r, h.storage, h.auth, h.logger)
	if job == nil {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "q is required")
		return
	}
	k := QueryInt(r, "k", 10)
	if k > 100 {
		k = 100
	}
	ctx := r.Context()

	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		h.logger.Error().Err(err).Msg("Failed to embed search query")
		WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	matches, err := h.index.Search(ctx, job.ID, vectors[0], k)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Vector search failed")
		WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	type hit struct {
		ChunkID    string  `json:"chunk_id"`
		ArtifactID string  `json:"artifact_id"`
		Score      float64 `json:"score"`
		Text       string  `json:"text"`
	}
	hits := make([]hit, 0, len(matches))
	chunks, err := h.storage.ChunkStorage().GetChunksByJob(ctx, job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to load chunks")
		WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	byID := make(map[string]int, len(chunks))
	for i, chunk := range chunks {
		byID[chunk.ID] = i
	}
	for _, match := range matches {
		i, ok := byID[match.ChunkID]
		if !ok {
			continue
		}
		hits = append(hits, hit{
			ChunkID:    match.ChunkID,
			ArtifactID: chunks[i].ArtifactID,
			Score:      match.Score,
			Text:       chunks[i].Text,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  job.ID,
		"query":   query,
		"results": hits,
	})
}
