package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"
	"event-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

type OrganizerOnboarding interface {
	SubmitKYC(ctx context.Context, user *models.User, req *models.KYCRequest) (*models.Organizer, error)
	GetMyOrganizer(ctx context.Context, user *models.User) (*models.Organizer, error)
}

type EventPublisher interface {
	CreateEvent(ctx context.Context, user *models.User, req *models.EventCreateRequest) (*models.Event, error)
	UpdateEvent(ctx context.Context, user *models.User, eventID string, req *models.EventUpdateRequest) (*models.Event, error)
	CancelEvent(ctx context.Context, user *models.User, eventID string, meta models.RequestMeta) (*services.EventCancellation, error)
	ListOrganizerEvents(ctx context.Context, user *models.User) ([]*models.Event, error)
}

type BannerUploader interface {
	UploadBanner(ctx context.Context, user *models.User, eventID string, img io.Reader) (*models.Event, error)
}

// OrganizerHandler handles KYC onboarding and organizer event management
type OrganizerHandler struct {
	organizers OrganizerOnboarding
	events     EventPublisher
	banners    BannerUploader
	logger     *slog.Logger
}

// NewOrganizerHandler creates a new organizer handler
func NewOrganizerHandler(organizers OrganizerOnboarding, events EventPublisher, banners BannerUploader, logger *slog.Logger) *OrganizerHandler {
	return &OrganizerHandler{
		organizers: organizers,
		events:     events,
		banners:    banners,
		logger:     logger,
	}
}

// SubmitKYC handles POST /api/organizers
func (h *OrganizerHandler) SubmitKYC(w http.ResponseWriter, r *http.Request) {
	var req models.KYCRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	org, err := h.organizers.SubmitKYC(r.Context(), middleware.GetUserFromContext(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// MyOrganizer handles GET /api/organizers/me
func (h *OrganizerHandler) MyOrganizer(w http.ResponseWriter, r *http.Request) {
	org, err := h.organizers.GetMyOrganizer(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// ListEvents handles GET /api/organizer/events
func (h *OrganizerHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListOrganizerEvents(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// CreateEvent handles POST /api/organizer/events
func (h *OrganizerHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), middleware.GetUserFromContext(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/events/"+event.ID)
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /api/organizer/events/{eventID}
func (h *OrganizerHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "eventID"), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CancelEvent handles POST /api/organizer/events/{eventID}/cancel and the admin equivalent
func (h *OrganizerHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	result, err := h.events.CancelEvent(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "eventID"), requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UploadBanner handles POST /api/organizer/events/{eventID}/banner
func (h *OrganizerHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	// multipart framing needs a little room beyond the image itself
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxBannerBytes+64<<10)
	if err := r.ParseMultipartForm(services.MaxBannerBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "banner upload must be multipart/form-data under 10MB")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("banner")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "missing banner file")
		return
	}
	defer file.Close()

	event, err := h.banners.UploadBanner(r.Context(), middleware.GetUserFromContext(r.Context()), chi.URLParam(r, "eventID"), file)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
