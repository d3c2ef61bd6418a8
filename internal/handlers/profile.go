package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"
)

type ProfileService interface {
	GetProfile(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User, req *models.ProfileUpdateRequest) (*models.User, error)
}

// ProfileHandler handles the caller's own profile
type ProfileHandler struct {
	users  ProfileService
	logger *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(users ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

// Get handles GET /api/me
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update handles PATCH /api/me
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), middleware.GetUserFromContext(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
