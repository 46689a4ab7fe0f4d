package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
)

// APIHandler serves the unauthenticated service endpoints
type APIHandler struct {
	startTime time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates the service endpoint handler
func NewAPIHandler(logger arbor.ILogger) *APIHandler {
	return &APIHandler{startTime: time.Now(), logger: logger}
}

// Health handles GET /api/health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// Version handles GET /api/version
func (h *APIHandler) Version(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
	})
}
