package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/metrics"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"
	"event-marketplace/internal/utils"
)

// TicketService handles ticket lookups and door check-in
type TicketService struct {
	catalog   CatalogStore
	bookings  BookingStore
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewTicketService creates a new ticket service
func NewTicketService(catalog CatalogStore, bookings BookingStore, publisher Publisher, logger *slog.Logger) *TicketService {
	return &TicketService{
		catalog:   catalog,
		bookings:  bookings,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ListMyTickets returns the user's bookings with their tickets, newest first
func (s *TicketService) ListMyTickets(ctx context.Context, user *models.User) ([]*models.BookingDetail, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByUser(ctx, user.ID)
}

// GetTicket returns a ticket visible to requester
func (s *TicketService) GetTicket(ctx context.Context, ticketID string, requester *models.User) (*models.Ticket, error) {
	if err := requireUser(requester); err != nil {
		return nil, err
	}
	ticket, err := s.bookings.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := ticketAuthority(ctx, s.catalog, requester, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Redeem checks a ticket in at the door, moving it from BOOKED to USED.
// Only the event's organiser or an admin may scan.
func (s *TicketService) Redeem(ctx context.Context, code string, scanner *models.User) (*models.Ticket, error) {
	ctx = context.WithoutCancel(ctx)
	if err := requireUser(scanner); err != nil {
		return nil, err
	}
	if !scanner.HasRole(models.RoleOrganiser) {
		return nil, models.ErrForbidden
	}

	code = utils.NormalizeTicketCode(code)
	if !utils.VerifyTicketCode(code) {
		return nil, models.ErrInvalidTicketCode
	}
	ticket, err := s.bookings.GetTicketByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	event, err := s.catalog.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(scanner, event) {
		return nil, models.ErrForbidden
	}
	if event.Status == models.EventCancelled {
		return nil, models.ErrEventUnavailable
	}

	var redeemed *models.Ticket
	err = s.bookings.RunInTx(ctx, func(tx repositories.InventoryTx) error {
		locked, err := tx.LockTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if !locked.CanBeUsed() {
			return fmt.Errorf("%w: ticket is %s", models.ErrInvalidTransition, locked.Status)
		}
		at := s.now().UTC()
		if err := tx.SetBookingStatus(ctx, locked.BookingID, locked.ID, models.BookingUsed, at); err != nil {
			return err
		}
		locked.Status = models.BookingUsed
		locked.UsedAt = &at
		redeemed = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncTicketRedeemed()
	s.logger.Info("ticket redeemed", "ticket_id", redeemed.ID, "event_id", redeemed.EventID, "scanner_id", scanner.ID)
	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, messaging.TicketRedeemed, redeemed); err != nil {
			s.logger.Error("failed to publish redemption", "ticket_id", redeemed.ID, "error", err)
		}
	}
	return redeemed, nil
}
