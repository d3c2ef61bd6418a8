package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-marketplace/internal/models"
)

// BookingRepository persists bookings, tickets and refunds and owns the
// inventory transaction boundary.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, event_id, tier_id, price, fee, total, status, created_at, updated_at`

const ticketColumns = `id, booking_id, user_id, event_id, tier_id, code, status, created_at, used_at`

func scanBooking(row scanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(&b.ID, &b.UserID, &b.EventID, &b.TierID, &b.Price, &b.Fee, &b.Total, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanTicket(row scanner) (*models.Ticket, error) {
	t := &models.Ticket{}
	var usedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.BookingID, &t.UserID, &t.EventID, &t.TierID, &t.Code, &t.Status, &t.CreatedAt, &usedAt); err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return t, nil
}

// RunInTx runs fn inside one database transaction. Any error from fn rolls
// back every write made through the InventoryTx.
func (r *BookingRepository) RunInTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&pgInventoryTx{tx: tx})
	})
}

// GetTicket retrieves a ticket by ID
func (r *BookingRepository) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// GetTicketByCode retrieves a ticket by its scannable code
func (r *BookingRepository) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = $1`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// GetBooking retrieves a booking by ID
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListBookingsByUser returns a user's bookings with ticket and event details, newest first
func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID string) ([]*models.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.event_id, b.tier_id, b.price, b.fee, b.total, b.status, b.created_at, b.updated_at,
		       t.id, t.booking_id, t.user_id, t.event_id, t.tier_id, t.code, t.status, t.created_at, t.used_at,
		       e.title, e.location, e.starts_at, tt.name
		FROM bookings b
		JOIN tickets t ON t.booking_id = b.id
		JOIN events e ON e.id = b.event_id
		JOIN ticket_tiers tt ON tt.id = b.tier_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	details := []*models.BookingDetail{}
	for rows.Next() {
		b := &models.Booking{}
		t := &models.Ticket{}
		d := &models.BookingDetail{Booking: b, Ticket: t}
		var usedAt sql.NullTime
		err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.TierID, &b.Price, &b.Fee, &b.Total, &b.Status, &b.CreatedAt, &b.UpdatedAt,
			&t.ID, &t.BookingID, &t.UserID, &t.EventID, &t.TierID, &t.Code, &t.Status, &t.CreatedAt, &usedAt,
			&d.EventTitle, &d.EventLocation, &d.EventStartsAt, &d.TierName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if usedAt.Valid {
			t.UsedAt = &usedAt.Time
		}
		details = append(details, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return details, nil
}

// pgInventoryTx implements InventoryTx on a *sql.Tx
type pgInventoryTx struct {
	tx *sql.Tx
}

// IncrementSold reserves count tickets. The event row is share-locked so a
// concurrent CancelEvent either waits and then cancels this booking too, or
// commits first and is seen here. The WHERE clause makes the capacity check
// and the increment one atomic statement under the tier's row lock.
func (t *pgInventoryTx) IncrementSold(ctx context.Context, eventID, tierID string, count int) (*models.Tier, error) {
	var status models.EventStatus
	err := t.tx.QueryRowContext(ctx,
		`SELECT status FROM events WHERE id = $1 FOR SHARE`, eventID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock event: %w", classifyError(err))
	}
	if status != models.EventApproved {
		return nil, models.ErrEventUnavailable
	}

	tier, err := scanTier(t.tx.QueryRowContext(ctx, `
		UPDATE ticket_tiers SET sold = sold + $3
		WHERE id = $1 AND event_id = $2 AND sold + $3 <= quantity
		RETURNING `+tierColumns, tierID, eventID, count))
	if err == nil {
		return tier, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to increment sold: %w", classifyError(err))
	}

	var exists bool
	if err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ticket_tiers WHERE id = $1 AND event_id = $2)`,
		tierID, eventID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check tier: %w", classifyError(err))
	}
	if !exists {
		return nil, models.ErrTierNotFound
	}
	return nil, models.ErrCapacityExceeded
}

// DecrementSold releases count tickets, clamping sold at zero.
func (t *pgInventoryTx) DecrementSold(ctx context.Context, eventID, tierID string, count int) (*models.Tier, error) {
	tier, err := scanTier(t.tx.QueryRowContext(ctx, `
		UPDATE ticket_tiers SET sold = GREATEST(sold - $3, 0)
		WHERE id = $1 AND event_id = $2
		RETURNING `+tierColumns, tierID, eventID, count))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTierNotFound
		}
		return nil, fmt.Errorf("failed to decrement sold: %w", classifyError(err))
	}
	return tier, nil
}

func (t *pgInventoryTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.UserID, b.EventID, b.TierID, b.Price, b.Fee, b.Total, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", classifyError(err))
	}
	return nil
}

func (t *pgInventoryTx) CreateTicket(ctx context.Context, tk *models.Ticket) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tickets (id, booking_id, user_id, event_id, tier_id, code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tk.ID, tk.BookingID, tk.UserID, tk.EventID, tk.TierID, tk.Code, tk.Status, tk.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", classifyError(err))
	}
	return nil
}

// LockTicket reads a ticket and holds its row lock until the transaction ends
func (t *pgInventoryTx) LockTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := scanTicket(t.tx.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, ticketID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to lock ticket: %w", classifyError(err))
	}
	return ticket, nil
}

func (t *pgInventoryTx) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := scanBooking(t.tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", classifyError(err))
	}
	return booking, nil
}

// SetBookingStatus moves a booking and its ticket to status together
func (t *pgInventoryTx) SetBookingStatus(ctx context.Context, bookingID, ticketID string, status models.BookingStatus, at time.Time) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`, bookingID, status, at); err != nil {
		return fmt.Errorf("failed to update booking status: %w", classifyError(err))
	}

	var usedAt sql.NullTime
	if status == models.BookingUsed {
		usedAt = sql.NullTime{Time: at, Valid: true}
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE tickets SET status = $2, used_at = COALESCE($3, used_at) WHERE id = $1`, ticketID, status, usedAt); err != nil {
		return fmt.Errorf("failed to update ticket status: %w", classifyError(err))
	}
	return nil
}

func (t *pgInventoryTx) CreateRefund(ctx context.Context, refund *models.Refund) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO refunds (id, booking_id, ticket_id, amount, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		refund.ID, refund.BookingID, refund.TicketID, refund.Amount, refund.RequestedBy, refund.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record refund: %w", classifyError(err))
	}
	return nil
}
