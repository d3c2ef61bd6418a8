package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"event-marketplace/internal/models"

	"github.com/lib/pq"
)

// EventRepository is the Postgres-backed event catalog
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, organizer_id, owner_id, title, description, category, location, starts_at,
	banner_url, banner_key, status, rejection_reason, reviewed_by, reviewed_at, created_at, updated_at`

const tierColumns = `id, event_id, name, price, quantity, sold, position, created_at`

func scanEvent(row scanner) (*models.Event, error) {
	event := &models.Event{}
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&event.Category,
		&event.Location,
		&event.StartsAt,
		&event.BannerURL,
		&event.BannerKey,
		&event.Status,
		&event.RejectionReason,
		&reviewedBy,
		&reviewedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewedBy.Valid {
		event.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		event.ReviewedAt = &reviewedAt.Time
	}
	return event, nil
}

func scanTier(row scanner) (*models.Tier, error) {
	tier := &models.Tier{}
	err := row.Scan(
		&tier.ID,
		&tier.EventID,
		&tier.Name,
		&tier.Price,
		&tier.Quantity,
		&tier.Sold,
		&tier.Position,
		&tier.CreatedAt,
	)
	return tier, err
}

// GetEvent retrieves an event with its tiers
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if err := r.attachTiers(ctx, []*models.Event{event}); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns a snapshot of the events matching the filter, soonest
// first. Without a limit the whole filtered catalog is returned.
func (r *EventRepository) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.OrganizerID != "" {
		conditions = append(conditions, fmt.Sprintf("organizer_id = $%d", argIndex))
		args = append(args, filter.OrganizerID)
		argIndex++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(category) = LOWER($%d)", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR category ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+escapeLike(q)+"%")
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY starts_at ASC, id ASC"
	if limit := snapshotLimit(filter.Limit); limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}
	query += fmt.Sprintf(" OFFSET $%d", argIndex)
	args = append(args, max(filter.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	if err := r.attachTiers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) attachTiers(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	byID := make(map[string]*models.Event, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		e.Tiers = []*models.Tier{}
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tierColumns+` FROM ticket_tiers WHERE event_id = ANY($1) ORDER BY event_id, position`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return fmt.Errorf("failed to scan tier: %w", err)
		}
		if e := byID[tier.EventID]; e != nil {
			e.Tiers = append(e.Tiers, tier)
		}
	}
	return rows.Err()
}

// CreateEvent inserts an event and its tiers atomically
func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (id, organizer_id, owner_id, title, description, category, location, starts_at,
				status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			event.ID, event.OrganizerID, event.OwnerID, event.Title, event.Description, event.Category,
			event.Location, event.StartsAt, event.Status, event.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create event: %w", classifyError(err))
		}

		for _, tier := range event.Tiers {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO ticket_tiers (id, event_id, name, price, quantity, sold, position, created_at)
				VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
				tier.ID, event.ID, tier.Name, tier.Price, tier.Quantity, tier.Position, tier.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to create tier %q: %w", tier.Name, classifyError(err))
			}
		}
		return nil
	})
}

// UpdateEventDetails saves editable fields and capacity changes. Capacity can
// never drop below what has already been sold.
func (r *EventRepository) UpdateEventDetails(ctx context.Context, event *models.Event, changes []models.TierQuantityChange) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE events
			SET title = $2, description = $3, category = $4, location = $5, starts_at = $6, updated_at = $7
			WHERE id = $1 AND status IN ('PENDING', 'APPROVED')`,
			event.ID, event.Title, event.Description, event.Category, event.Location, event.StartsAt, event.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update event: %w", classifyError(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return models.ErrInvalidTransition
		}

		for _, change := range changes {
			res, err := tx.ExecContext(ctx, `
				UPDATE ticket_tiers SET quantity = $3
				WHERE id = $1 AND event_id = $2 AND sold <= $3`,
				change.TierID, event.ID, change.Quantity)
			if err != nil {
				return fmt.Errorf("failed to update tier quantity: %w", classifyError(err))
			}
			if n, _ := res.RowsAffected(); n == 0 {
				var exists bool
				if err := tx.QueryRowContext(ctx,
					`SELECT EXISTS (SELECT 1 FROM ticket_tiers WHERE id = $1 AND event_id = $2)`,
					change.TierID, event.ID).Scan(&exists); err != nil {
					return fmt.Errorf("failed to check tier: %w", err)
				}
				if !exists {
					return models.ErrTierNotFound
				}
				return &models.ValidationError{Field: "tiers.quantity", Message: "quantity cannot be below tickets already sold"}
			}
		}
		return nil
	})
}

// ModerateEvent moves a PENDING event to APPROVED or REJECTED
func (r *EventRepository) ModerateEvent(ctx context.Context, eventID string, to models.EventStatus, reviewerID, reason string, at time.Time) (*models.Event, error) {
	event, err := scanEvent(r.db.QueryRowContext(ctx, `
		UPDATE events
		SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5, updated_at = $4
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+eventColumns,
		eventID, to, reviewerID, at, reason))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.missingOrTransition(ctx, eventID)
		}
		return nil, fmt.Errorf("failed to moderate event: %w", classifyError(err))
	}
	if err := r.attachTiers(ctx, []*models.Event{event}); err != nil {
		return nil, err
	}
	return event, nil
}

// CancelEvent marks the event CANCELLED and cancels its outstanding bookings.
// It returns how many bookings were cancelled.
func (r *EventRepository) CancelEvent(ctx context.Context, eventID string, at time.Time) (int, error) {
	var cancelled int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE events SET status = 'CANCELLED', updated_at = $2
			WHERE id = $1 AND status IN ('PENDING', 'APPROVED')`, eventID, at)
		if err != nil {
			return fmt.Errorf("failed to cancel event: %w", classifyError(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.missingOrTransition(ctx, eventID)
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE bookings SET status = 'CANCELLED', updated_at = $2
			WHERE event_id = $1 AND status = 'BOOKED'`, eventID, at)
		if err != nil {
			return fmt.Errorf("failed to cancel bookings: %w", classifyError(err))
		}
		cancelled, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `
			UPDATE tickets SET status = 'CANCELLED'
			WHERE event_id = $1 AND status = 'BOOKED'`, eventID); err != nil {
			return fmt.Errorf("failed to cancel tickets: %w", classifyError(err))
		}
		return nil
	})
	return int(cancelled), err
}

// SetBanner records the uploaded banner for an event
func (r *EventRepository) SetBanner(ctx context.Context, eventID, url, key string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET banner_url = $2, banner_key = $3, updated_at = $4 WHERE id = $1`,
		eventID, url, key, at)
	if err != nil {
		return fmt.Errorf("failed to set banner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) missingOrTransition(ctx context.Context, eventID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return models.ErrEventNotFound
	}
	return models.ErrInvalidTransition
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
