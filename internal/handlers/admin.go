package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"

	"github.com/go-chi/chi/v5"
)

type OrganizerReview interface {
	ListOrganizers(ctx context.Context, admin *models.User, status models.OrganizerStatus) ([]*models.Organizer, error)
	Approve(ctx context.Context, admin *models.User, orgID string, meta models.RequestMeta) (*models.Organizer, error)
	Suspend(ctx context.Context, admin *models.User, orgID, reason string, meta models.RequestMeta) (*models.Organizer, error)
}

type EventModeration interface {
	ListPending(ctx context.Context, admin *models.User, limit, offset int) ([]*models.Event, error)
	Approve(ctx context.Context, admin *models.User, eventID string, meta models.RequestMeta) (*models.Event, error)
	Reject(ctx context.Context, admin *models.User, eventID, reason string, meta models.RequestMeta) (*models.Event, error)
}

type AuditReader interface {
	GetAuditLogs(ctx context.Context, actor *models.User, filter models.AuditLogFilter) ([]*models.AuditLog, int, error)
}

type StatsReader interface {
	Stats(ctx context.Context, admin *models.User) (*models.AdminStats, error)
}

// AdminHandler handles the admin console API
type AdminHandler struct {
	organizers OrganizerReview
	moderation EventModeration
	audit      AuditReader
	stats      StatsReader
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(organizers OrganizerReview, moderation EventModeration, audit AuditReader, stats StatsReader, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		organizers: organizers,
		moderation: moderation,
		audit:      audit,
		stats:      stats,
		logger:     logger,
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// ListOrganizers handles GET /api/admin/organizers?status=
func (h *AdminHandler) ListOrganizers(w http.ResponseWriter, r *http.Request) {
	status := models.OrganizerStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	switch status {
	case "", models.OrganizerPending, models.OrganizerActive, models.OrganizerSuspended:
	default:
		writeError(w, http.StatusBadRequest, "invalid_input", "status must be PENDING, ACTIVE or SUSPENDED")
		return
	}

	orgs, err := h.organizers.ListOrganizers(r.Context(), middleware.GetUserFromContext(r.Context()), status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizers": orgs})
}

// ApproveOrganizer handles POST /api/admin/organizers/{id}/approve
func (h *AdminHandler) ApproveOrganizer(w http.ResponseWriter, r *http.Request) {
	org, err := h.organizers.Approve(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "id"), requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// SuspendOrganizer handles POST /api/admin/organizers/{id}/suspend
func (h *AdminHandler) SuspendOrganizer(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	org, err := h.organizers.Suspend(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "id"), req.Reason, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// PendingEvents handles GET /api/admin/events/pending
func (h *AdminHandler) PendingEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	events, err := h.moderation.ListPending(r.Context(), middleware.GetUserFromContext(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// ApproveEvent handles POST /api/admin/events/{eventID}/approve
func (h *AdminHandler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.moderation.Approve(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "eventID"), requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// RejectEvent handles POST /api/admin/events/{eventID}/reject
func (h *AdminHandler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	event, err := h.moderation.Reject(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "eventID"), req.Reason, requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// AuditLog handles GET /api/admin/audit-log?action=&target_type=&limit=&offset=
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	filter := models.AuditLogFilter{
		Action:     r.URL.Query().Get("action"),
		TargetType: r.URL.Query().Get("target_type"),
	}
	filter.Limit, filter.Offset = pagination(r)

	logs, total, err := h.audit.GetAuditLogs(r.Context(), middleware.GetUserFromContext(r.Context()), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": logs, "total": total})
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
