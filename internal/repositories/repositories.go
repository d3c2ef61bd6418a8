package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-marketplace/internal/models"

	"github.com/lib/pq"
)

// InventoryTx is the set of reads and writes available inside one booking
// transaction. Everything done through it commits or rolls back together.
type InventoryTx interface {
	IncrementSold(ctx context.Context, eventID, tierID string, count int) (*models.Tier, error)
	DecrementSold(ctx context.Context, eventID, tierID string, count int) (*models.Tier, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	LockTicket(ctx context.Context, ticketID string) (*models.Ticket, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	SetBookingStatus(ctx context.Context, bookingID, ticketID string, status models.BookingStatus, at time.Time) error
	CreateRefund(ctx context.Context, refund *models.Refund) error
}

// Postgres error codes that mean "try the transaction again"
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
)

const ticketCodeConstraint = "tickets_code_key"

// classifyError maps driver errors onto the model sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return fmt.Errorf("%w: %s", models.ErrTransient, pqErr.Message)
	case pqUniqueViolation:
		// a colliding ticket code is retried with a fresh code
		if pqErr.Constraint == ticketCodeConstraint {
			return fmt.Errorf("%w: ticket code collision", models.ErrTransient)
		}
		return fmt.Errorf("%w: %s", models.ErrDuplicateEntry, pqErr.Constraint)
	case pqCheckViolation:
		if strings.Contains(pqErr.Constraint, "sold") {
			return models.ErrCapacityExceeded
		}
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, pqErr.Message)
	}
	return err
}

// withTx runs fn inside a transaction on db, committing on success.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classifyError(err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classifyError(err))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// snapshotLimit bounds an explicit page size. Zero means no limit.
func snapshotLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	return min(limit, maxPageSize)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return defaultPageSize
	}
	return limit
}
