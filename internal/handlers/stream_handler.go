package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/services/auth"
)

const ssePingInterval = 15 * time.Second

// StreamHandler serves the per-job status stream over SSE. The stream opens
// with a snapshot of every artifact from the store (events have no replay),
// then relays live deltas, then closes after the job's terminal event.
type StreamHandler struct {
	storage interfaces.StorageManager
	bus     interfaces.StatusBus
	auth    *auth.Service
	logger  arbor.ILogger
}

// NewStreamHandler creates the status stream handler
func NewStreamHandler(storage interfaces.StorageManager, bus interfaces.StatusBus, authService *auth.Service, logger arbor.ILogger) *StreamHandler {
	return &StreamHandler{storage: storage, bus: bus, auth: authService, logger: logger}
}

// Stream handles GET /api/jobs/{supervisor}/{owner}/{uid}/status/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	job := scopedJob(w, r, h.storage, h.auth, h.logger)
	if job == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Subscribe before the snapshot so no delta falls in the gap; the
	// client reconciles duplicates by artifact ID
	events, cancel := h.bus.Subscribe(job.ID)
	defer cancel()

	artifacts, err := h.storage.ArtifactStorage().GetArtifactsByJob(r.Context(), job.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to snapshot artifacts for stream")
		return
	}
	for _, artifact := range artifacts {
		if !writeSSE(w, artifact.StatusEvent()) {
			return
		}
	}
	jobEvent := models.StatusEvent{
		Type:   models.EventTypeJobStatus,
		JobID:  job.ID,
		Status: string(job.Status),
	}
	if !writeSSE(w, jobEvent) {
		return
	}
	flusher.Flush()

	if job.Status.IsTerminal() {
		// Snapshot already tells the whole story
		return
	}

	ping := time.NewTicker(ssePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			if !writeSSE(w, event) {
				return
			}
			flusher.Flush()
			if event.Type == models.EventTypeJobStatus && models.JobStatus(event.Status).IsTerminal() {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event models.StatusEvent) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return false
	}
	return true
}
