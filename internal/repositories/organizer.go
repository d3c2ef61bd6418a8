package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-marketplace/internal/models"
)

// OrganizerRepository handles organizer KYC records
type OrganizerRepository struct {
	db *sql.DB
}

// NewOrganizerRepository creates a new organizer repository
func NewOrganizerRepository(db *sql.DB) *OrganizerRepository {
	return &OrganizerRepository{db: db}
}

const organizerColumns = `id, user_id, org_name, tax_id, status, is_verified, review_note, created_at, updated_at`

func scanOrganizer(row scanner) (*models.Organizer, error) {
	o := &models.Organizer{}
	err := row.Scan(&o.ID, &o.UserID, &o.OrgName, &o.TaxID, &o.Status, &o.IsVerified, &o.ReviewNote, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// SaveOrganizer inserts a KYC submission, or replaces a suspended one for the same user
func (r *OrganizerRepository) SaveOrganizer(ctx context.Context, org *models.Organizer) (*models.Organizer, error) {
	saved, err := scanOrganizer(r.db.QueryRowContext(ctx, `
		INSERT INTO organizers (id, user_id, org_name, tax_id, status, is_verified, review_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'PENDING', FALSE, '', $5, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET org_name = EXCLUDED.org_name,
		    tax_id = EXCLUDED.tax_id,
		    status = 'PENDING',
		    is_verified = FALSE,
		    review_note = '',
		    updated_at = EXCLUDED.updated_at
		WHERE organizers.status = 'SUSPENDED'
		RETURNING `+organizerColumns,
		org.ID, org.UserID, org.OrgName, org.TaxID, org.CreatedAt))
	if err != nil {
		if err == sql.ErrNoRows {
			// conflict with a PENDING or ACTIVE record
			return nil, models.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("failed to save organizer: %w", classifyError(err))
	}
	return saved, nil
}

// GetOrganizer retrieves an organizer by ID
func (r *OrganizerRepository) GetOrganizer(ctx context.Context, id string) (*models.Organizer, error) {
	org, err := scanOrganizer(r.db.QueryRowContext(ctx, `SELECT `+organizerColumns+` FROM organizers WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	return org, nil
}

// GetOrganizerByUser retrieves the organizer record owned by a user
func (r *OrganizerRepository) GetOrganizerByUser(ctx context.Context, userID string) (*models.Organizer, error) {
	org, err := scanOrganizer(r.db.QueryRowContext(ctx, `SELECT `+organizerColumns+` FROM organizers WHERE user_id = $1`, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	return org, nil
}

// ListOrganizers lists organizers, optionally by status, oldest submission first
func (r *OrganizerRepository) ListOrganizers(ctx context.Context, status models.OrganizerStatus) ([]*models.Organizer, error) {
	query := `SELECT ` + organizerColumns + ` FROM organizers`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizers: %w", err)
	}
	defer rows.Close()

	orgs := []*models.Organizer{}
	for rows.Next() {
		org, err := scanOrganizer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organizer: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizers: %w", err)
	}
	return orgs, nil
}

// ReviewOrganizer sets the organizer's status and, in the same transaction,
// moves the linked user between PUBLIC and ORGANISER. Admin users keep their role.
func (r *OrganizerRepository) ReviewOrganizer(ctx context.Context, orgID string, status models.OrganizerStatus, note string, at time.Time) (*models.Organizer, error) {
	var org *models.Organizer
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		org, err = scanOrganizer(tx.QueryRowContext(ctx, `
			UPDATE organizers
			SET status = $2, is_verified = ($2 = 'ACTIVE'), review_note = $3, updated_at = $4
			WHERE id = $1
			RETURNING `+organizerColumns, orgID, status, note, at))
		if err != nil {
			if err == sql.ErrNoRows {
				return models.ErrOrganizerNotFound
			}
			return fmt.Errorf("failed to update organizer: %w", classifyError(err))
		}

		role, from := models.RoleOrganiser, models.RolePublic
		if status != models.OrganizerActive {
			role, from = models.RolePublic, models.RoleOrganiser
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET role = $2, updated_at = $4 WHERE id = $1 AND role = $3`,
			org.UserID, role, from, at); err != nil {
			return fmt.Errorf("failed to update user role: %w", classifyError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}
