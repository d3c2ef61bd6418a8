package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"

	"github.com/go-chi/chi/v5"
)

// CatalogReader is the public side of the event catalog
type CatalogReader interface {
	ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)
	GetEvent(ctx context.Context, id string, viewer *models.User) (*models.Event, error)
	Quote(ctx context.Context, eventID, tierID string) (*models.Quote, error)
	OrganizerEvents(ctx context.Context, organizerID string) (*models.OrganizerEvents, error)
}

// Reserver books a single ticket, optionally deduplicated by an idempotency key
type Reserver interface {
	ReserveWithKey(ctx context.Context, user *models.User, eventID, tierID, key string) (*models.Receipt, bool, error)
}

// EventHandler serves the public catalog and bookings
type EventHandler struct {
	catalog      CatalogReader
	reservations Reserver
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalog CatalogReader, reservations Reserver, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		catalog:      catalog,
		reservations: reservations,
		logger:       logger,
	}
}

// ListEvents handles GET /api/events?category=&q=&from=&to=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.EventFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
	}
	filter.Limit, filter.Offset = pagination(r)

	var err error
	if filter.From, err = parseDateParam(q.Get("from"), false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "from: "+err.Error())
		return
	}
	if filter.To, err = parseDateParam(q.Get("to"), true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "to: "+err.Error())
		return
	}

	events, err := h.catalog.ListEvents(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// parseDateParam accepts RFC 3339 or a bare date. A bare "to" date covers the whole day.
func parseDateParam(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// GetEvent handles GET /api/events/{eventID}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.catalog.GetEvent(r.Context(), chi.URLParam(r, "eventID"), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Quote handles GET /api/events/{eventID}/tiers/{tierID}/quote
func (h *EventHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.catalog.Quote(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "tierID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type bookingRequest struct {
	TierID string `json:"tier_id"`
}

// Book handles POST /api/events/{eventID}/bookings. A repeated Idempotency-Key
// returns the original receipt with Idempotent-Replayed: true.
func (h *EventHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.TierID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "tier_id is required")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > 255 {
		writeError(w, http.StatusBadRequest, "invalid_input", "Idempotency-Key is too long")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	receipt, replayed, err := h.reservations.ReserveWithKey(r.Context(), user, chi.URLParam(r, "eventID"), req.TierID, key)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, receipt)
		return
	}
	w.Header().Set("Location", "/api/tickets/"+receipt.Ticket.ID)
	writeJSON(w, http.StatusCreated, receipt)
}

// OrganizerEvents handles GET /api/organizers/{organizerID}/events
func (h *EventHandler) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.OrganizerEvents(r.Context(), chi.URLParam(r, "organizerID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
