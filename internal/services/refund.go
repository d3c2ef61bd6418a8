package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/metrics"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"

	"github.com/google/uuid"
)

// RefundService cancels booked tickets and releases their inventory
type RefundService struct {
	catalog     CatalogStore
	bookings    BookingStore
	audit       *AuditService
	publisher   Publisher
	maxAttempts int
	logger      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewRefundService creates a refund service. audit may be nil.
func NewRefundService(catalog CatalogStore, bookings BookingStore, audit *AuditService, publisher Publisher, logger *slog.Logger) *RefundService {
	return &RefundService{
		catalog:     catalog,
		bookings:    bookings,
		audit:       audit,
		publisher:   publisher,
		maxAttempts: DefaultReserveAttempts,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Cancel refunds ticketID. The requester must own the ticket, be an admin, or
// be the organiser of the ticket's event. The status check, the status change,
// the inventory release and the refund record all happen under the ticket's
// lock, so racing cancellations refund at most once.
func (s *RefundService) Cancel(ctx context.Context, ticketID string, requester *models.User, meta models.RequestMeta) (*models.RefundResult, error) {
	ctx = context.WithoutCancel(ctx)

	result, err := s.cancel(ctx, ticketID, requester)
	metrics.ObserveRefund(refundOutcome(err))
	if err != nil {
		s.logger.Info("refund failed", "ticket_id", ticketID, "requester_id", userID(requester), "error", err)
		return nil, err
	}

	s.logger.Info("ticket refunded",
		"ticket_id", ticketID, "booking_id", result.Booking.ID,
		"amount", result.Refund.Amount, "requester_id", requester.ID)

	if requester.ID != result.Ticket.UserID {
		s.audit.record(ctx, requester.ID, models.AuditActionTicketRefund, models.AuditTargetTicket, ticketID,
			map[string]any{"booking_id": result.Booking.ID, "amount": result.Refund.Amount}, meta)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, messaging.BookingRefunded, result); err != nil {
			s.logger.Error("failed to publish refund", "booking_id", result.Booking.ID, "error", err)
		}
	}
	return result, nil
}

func (s *RefundService) cancel(ctx context.Context, ticketID string, requester *models.User) (*models.RefundResult, error) {
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

	var result *models.RefundResult
	err = retryTransient(ctx, s.maxAttempts, s.logger, func() error {
		at := s.now().UTC()
		return s.bookings.RunInTx(ctx, func(tx repositories.InventoryTx) error {
			locked, err := tx.LockTicket(ctx, ticketID)
			if err != nil {
				return err
			}
			if err := locked.CanBeRefunded(); err != nil {
				return err
			}
			booking, err := tx.GetBooking(ctx, locked.BookingID)
			if err != nil {
				return err
			}
			if err := tx.SetBookingStatus(ctx, booking.ID, locked.ID, models.BookingRefunded, at); err != nil {
				return err
			}
			if _, err := tx.DecrementSold(ctx, booking.EventID, booking.TierID, 1); err != nil {
				return err
			}
			refund := &models.Refund{
				ID:          s.newID(),
				BookingID:   booking.ID,
				TicketID:    locked.ID,
				Amount:      booking.Total,
				RequestedBy: requester.ID,
				CreatedAt:   at,
			}
			if err := tx.CreateRefund(ctx, refund); err != nil {
				if errors.Is(err, models.ErrDuplicateEntry) {
					return models.ErrAlreadyRefunded
				}
				return err
			}

			booking.Status = models.BookingRefunded
			booking.UpdatedAt = at
			locked.Status = models.BookingRefunded
			result = &models.RefundResult{Booking: booking, Ticket: locked, Refund: refund}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func refundOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRefunded
	case errors.Is(err, models.ErrAlreadyRefunded):
		return metrics.OutcomeAlreadyRefunded
	case errors.Is(err, models.ErrNotOwner):
		return metrics.OutcomeNotOwner
	case errors.Is(err, models.ErrContention):
		return metrics.OutcomeContention
	}
	return metrics.OutcomeError
}
