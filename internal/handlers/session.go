package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"event-marketplace/internal/models"
)

type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, id models.Identity) (*models.User, error)
}

// SessionWriter persists the caller's access token in a browser session
type SessionWriter interface {
	Save(w http.ResponseWriter, r *http.Request, token string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// SessionHandler lets browser clients trade an identity-provider token for a cookie
type SessionHandler struct {
	verifier TokenVerifier
	profiles ProfileEnsurer
	sessions SessionWriter
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(verifier TokenVerifier, profiles ProfileEnsurer, sessions SessionWriter, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		verifier: verifier,
		profiles: profiles,
		sessions: sessions,
		logger:   logger,
	}
}

type sessionRequest struct {
	AccessToken string `json:"access_token"`
}

// Create handles POST /api/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	token := strings.TrimSpace(req.AccessToken)
	identity, err := h.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid access token")
		return
	}

	user, err := h.profiles.EnsureProfile(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.Save(w, r, token); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("session started", "user_id", user.ID)
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
