package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/queue"
)

// AdminHandler serves the admin-only surfaces: dead-letter inspection and
// requeue, and the activity log. Role enforcement happens in middleware.
type AdminHandler struct {
	fabric   interfaces.QueueFabric
	activity interfaces.ActivityStorage
	logger   arbor.ILogger
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(fabric interfaces.QueueFabric, activity interfaces.ActivityStorage, logger arbor.ILogger) *AdminHandler {
	return &AdminHandler{fabric: fabric, activity: activity, logger: logger}
}

func validQueue(name string) bool {
	for _, q := range queue.WorkQueues {
		if q == name {
			return true
		}
	}
	return false
}

// ListDLQ handles GET /api/admin/dlq/{queue}
func (h *AdminHandler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	queueName := r.PathValue("queue")
	if !validQueue(queueName) {
		WriteError(w, http.StatusNotFound, "Unknown queue")
		return
	}

	items, err := h.fabric.ListDeadLetters(r.Context(), queueName)
	if err != nil {
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to list dead letters")
		WriteError(w, http.StatusInternalServerError, "Failed to list dead letters")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"queue": queueName,
		"items": items,
		"count": len(items),
	})
}

type requeueRequest struct {
	DeadLetterID string `json:"dead_letter_id"`
}

// RequeueDLQ handles POST /api/admin/dlq/{queue}/requeue
func (h *AdminHandler) RequeueDLQ(w http.ResponseWriter, r *http.Request) {
	queueName := r.PathValue("queue")
	if !validQueue(queueName) {
		WriteError(w, http.StatusNotFound, "Unknown queue")
		return
	}

	var req requeueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeadLetterID == "" {
		WriteError(w, http.StatusBadRequest, "dead_letter_id is required")
		return
	}

	if err := h.fabric.RequeueDeadLetter(r.Context(), queueName, req.DeadLetterID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Dead letter not found")
			return
		}
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to requeue dead letter")
		WriteError(w, http.StatusInternalServerError, "Failed to requeue dead letter")
		return
	}

	user := Principal(r)
	h.activity.Append(r.Context(), &models.ActivityLogEntry{
		UserID:  user.ID,
		Kind:    "dlq_requeue",
		Role:    string(user.Role),
		Details: fmt.Sprintf("queue=%s id=%s", queueName, req.DeadLetterID),
	})
	h.logger.Info().
		Str("queue", queueName).
		Str("dead_letter_id", req.DeadLetterID).
		Str("user_id", user.ID).
		Msg("Dead letter requeued")

	WriteSuccess(w, "Dead letter requeued")
}

// Activity handles GET /api/admin/activity
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.activity.List(r.Context(), QueryInt(r, "limit", 100))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list activity")
		WriteError(w, http.StatusInternalServerError, "Failed to list activity")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
