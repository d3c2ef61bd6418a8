package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

type TicketReader interface {
	ListMyTickets(ctx context.Context, user *models.User) ([]*models.BookingDetail, error)
	GetTicket(ctx context.Context, ticketID string, requester *models.User) (*models.Ticket, error)
	Redeem(ctx context.Context, code string, scanner *models.User) (*models.Ticket, error)
}

type Refunder interface {
	Cancel(ctx context.Context, ticketID string, requester *models.User, meta models.RequestMeta) (*models.RefundResult, error)
}

// TicketHandler serves ticket holders and door scanners
type TicketHandler struct {
	tickets TicketReader
	refunds Refunder
	logger  *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets TicketReader, refunds Refunder, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		refunds: refunds,
		logger:  logger,
	}
}

// MyTickets handles GET /api/me/tickets
func (h *TicketHandler) MyTickets(w http.ResponseWriter, r *http.Request) {
	details, err := h.tickets.ListMyTickets(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": details})
}

// GetTicket handles GET /api/tickets/{ticketID}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.GetTicket(r.Context(), chi.URLParam(r, "ticketID"), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// QRCode handles GET /api/tickets/{ticketID}/qr.png. The image encodes the ticket code.
func (h *TicketHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.GetTicket(r.Context(), chi.URLParam(r, "ticketID"), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	png, err := qrcode.Encode(ticket.Code, qrcode.Medium, qrSize)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Cancel handles POST /api/tickets/{ticketID}/cancel
func (h *TicketHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	result, err := h.refunds.Cancel(r.Context(), chi.URLParam(r, "ticketID"), middleware.GetUserFromContext(r.Context()), requestMeta(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type checkinRequest struct {
	Code string `json:"code"`
}

// Checkin handles POST /api/checkin
func (h *TicketHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	ticket, err := h.tickets.Redeem(r.Context(), req.Code, middleware.GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
