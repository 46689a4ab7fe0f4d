package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/services/auth"
)

// AuthHandler serves login
type AuthHandler struct {
	auth     *auth.Service
	activity interfaces.ActivityStorage
	logger   arbor.ILogger
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(authService *auth.Service, activity interfaces.ActivityStorage, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{auth: authService, activity: activity, logger: logger}
}

type loginRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Secret == "" {
		WriteError(w, http.StatusBadRequest, "email and secret are required")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Secret)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error().Err(err).Msg("Login failed")
		WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.activity.Append(r.Context(), &models.ActivityLogEntry{
		UserID: user.ID,
		Kind:   "login",
		Role:   string(user.Role),
	})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"role":  string(user.Role),
		},
	})
}
