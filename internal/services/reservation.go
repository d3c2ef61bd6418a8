package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/metrics"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"
	"event-marketplace/internal/utils"

	"github.com/google/uuid"
)

// DefaultConvenienceFee is added to every ticket price at checkout
const DefaultConvenienceFee int64 = 45

// DefaultReserveAttempts bounds retries of a transaction that hit a transient conflict
const DefaultReserveAttempts = 3

// ReservationError records the step at which a reservation failed.
// It unwraps to the model sentinel that caused the failure.
type ReservationError struct {
	Step models.ReservationStep
	Err  error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("reservation failed at %s: %v", e.Step, e.Err)
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}

// ReservationService turns a tier selection into a confirmed booking and ticket
type ReservationService struct {
	catalog     CatalogStore
	bookings    BookingStore
	publisher   Publisher
	idem        IdempotencyStore
	fee         int64
	maxAttempts int
	logger      *slog.Logger

	now     func() time.Time
	newID   func() string
	newCode func() (string, error)
}

// ReservationOption configures a ReservationService
type ReservationOption func(*ReservationService)

// WithConvenienceFee overrides DefaultConvenienceFee
func WithConvenienceFee(fee int64) ReservationOption {
	return func(s *ReservationService) { s.fee = fee }
}

// WithMaxAttempts overrides DefaultReserveAttempts
func WithMaxAttempts(n int) ReservationOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithIdempotency enables Idempotency-Key handling in ReserveWithKey
func WithIdempotency(store IdempotencyStore) ReservationOption {
	return func(s *ReservationService) { s.idem = store }
}

// NewReservationService creates a reservation service
func NewReservationService(catalog CatalogStore, bookings BookingStore, publisher Publisher, logger *slog.Logger, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		catalog:     catalog,
		bookings:    bookings,
		publisher:   publisher,
		fee:         DefaultConvenienceFee,
		maxAttempts: DefaultReserveAttempts,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		newCode:     utils.GenerateTicketCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve books one ticket of tierID for user. The inventory increment, the
// booking and the ticket are written in one transaction, so a failure leaves
// no trace. Request cancellation does not interrupt a reservation in flight.
func (s *ReservationService) Reserve(ctx context.Context, user *models.User, eventID, tierID string) (*models.Receipt, error) {
	ctx = context.WithoutCancel(ctx)
	started := s.now()

	receipt, err := s.reserve(ctx, user, eventID, tierID)
	metrics.ObserveReservation(reservationOutcome(err), started)
	if err != nil {
		s.logger.Info("reservation failed",
			"user_id", userID(user), "event_id", eventID, "tier_id", tierID, "error", err)
		return nil, err
	}

	s.logger.Info("reservation confirmed",
		"booking_id", receipt.Booking.ID, "ticket_id", receipt.Ticket.ID,
		"event_id", eventID, "tier_id", tierID, "total", receipt.Booking.Total)
	s.publish(ctx, messaging.BookingConfirmed, receipt)
	return receipt, nil
}

func (s *ReservationService) reserve(ctx context.Context, user *models.User, eventID, tierID string) (*models.Receipt, error) {
	// SELECTING
	if err := requireUser(user); err != nil {
		return nil, &ReservationError{Step: models.StepSelecting, Err: err}
	}
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, &ReservationError{Step: models.StepSelecting, Err: err}
	}
	if !event.IsBookable() {
		return nil, &ReservationError{Step: models.StepSelecting, Err: models.ErrEventUnavailable}
	}
	tier := event.FindTier(tierID)
	if tier == nil {
		return nil, &ReservationError{Step: models.StepSelecting, Err: models.ErrTierNotFound}
	}

	// PRICING
	quote := models.NewQuote(tier, s.fee)

	// CONFIRMING
	var receipt *models.Receipt
	err = s.retry(ctx, func() error {
		code, err := s.newCode()
		if err != nil {
			return err
		}
		at := s.now().UTC()
		booking := &models.Booking{
			ID:        s.newID(),
			UserID:    user.ID,
			EventID:   event.ID,
			TierID:    tier.ID,
			Price:     quote.Price,
			Fee:       quote.Fee,
			Total:     quote.Total,
			Status:    models.BookingBooked,
			CreatedAt: at,
			UpdatedAt: at,
		}
		ticket := IssueTicket(booking, s.newID(), code)

		err = s.bookings.RunInTx(ctx, func(tx repositories.InventoryTx) error {
			if _, err := tx.IncrementSold(ctx, event.ID, tier.ID, 1); err != nil {
				return err
			}
			if err := tx.CreateBooking(ctx, booking); err != nil {
				return err
			}
			return tx.CreateTicket(ctx, ticket)
		})
		if err != nil {
			return err
		}
		receipt = &models.Receipt{Booking: booking, Ticket: ticket}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrCapacityExceeded) {
			err = fmt.Errorf("%w: %s", models.ErrSoldOut, tier.Name)
		}
		return nil, &ReservationError{Step: models.StepConfirming, Err: err}
	}
	return receipt, nil
}

// ReserveWithKey is Reserve guarded by a client idempotency key. A repeated key
// returns the original receipt with replayed set, as long as it names the same
// event and tier. Without a key or without an
// idempotency store it behaves exactly like Reserve.
func (s *ReservationService) ReserveWithKey(ctx context.Context, user *models.User, eventID, tierID, key string) (*models.Receipt, bool, error) {
	if key == "" || s.idem == nil || user == nil {
		receipt, err := s.Reserve(ctx, user, eventID, tierID)
		return receipt, false, err
	}
	ctx = context.WithoutCancel(ctx)

	ticketID, err := s.idem.Begin(ctx, user.ID, key)
	switch {
	case errors.Is(err, models.ErrRequestInProgress):
		return nil, false, err
	case err != nil:
		s.logger.Warn("idempotency store unavailable, booking without key",
			"user_id", user.ID, "error", err)
		receipt, err := s.Reserve(ctx, user, eventID, tierID)
		return receipt, false, err
	case ticketID != "":
		receipt, err := s.receipt(ctx, ticketID)
		if err != nil {
			return nil, false, err
		}
		if receipt.Booking.EventID != eventID || receipt.Booking.TierID != tierID {
			return nil, false, models.ErrIdempotencyKeyUsed
		}
		return receipt, true, nil
	}

	receipt, err := s.Reserve(ctx, user, eventID, tierID)
	if err != nil {
		if relErr := s.idem.Release(ctx, user.ID, key); relErr != nil {
			s.logger.Warn("failed to release idempotency key", "user_id", user.ID, "error", relErr)
		}
		return nil, false, err
	}
	if err := s.idem.Complete(ctx, user.ID, key, receipt.Ticket.ID); err != nil {
		s.logger.Warn("failed to store idempotency result",
			"user_id", user.ID, "ticket_id", receipt.Ticket.ID, "error", err)
	}
	return receipt, false, nil
}

func (s *ReservationService) receipt(ctx context.Context, ticketID string) (*models.Receipt, error) {
	ticket, err := s.bookings.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.GetBooking(ctx, ticket.BookingID)
	if err != nil {
		return nil, err
	}
	return &models.Receipt{Booking: booking, Ticket: ticket}, nil
}

// retry runs attempt until it succeeds, fails permanently, or hits a
// transient conflict maxAttempts times, which becomes ErrContention.
func (s *ReservationService) retry(ctx context.Context, attempt func() error) error {
	return retryTransient(ctx, s.maxAttempts, s.logger, attempt)
}

func retryTransient(ctx context.Context, maxAttempts int, logger *slog.Logger, attempt func() error) error {
	var err error
	for i := 1; i <= maxAttempts; i++ {
		err = attempt()
		if !errors.Is(err, models.ErrTransient) {
			return err
		}
		metrics.IncReservationRetry()
		logger.Debug("transient conflict, retrying", "attempt", i, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", models.ErrContention, maxAttempts, err)
}

func (s *ReservationService) publish(ctx context.Context, key string, receipt *models.Receipt) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJSON(ctx, key, receipt); err != nil {
		s.logger.Error("failed to publish booking event",
			"routing_key", key, "booking_id", receipt.Booking.ID, "error", err)
	}
}

func reservationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, models.ErrSoldOut):
		return metrics.OutcomeSoldOut
	case errors.Is(err, models.ErrEventUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, models.ErrContention):
		return metrics.OutcomeContention
	}
	return metrics.OutcomeError
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
