package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-marketplace/internal/models"
)

// UserRepository handles user profile data operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, display_name, role, wallet_balance, email_verified, phone_verified, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.WalletBalance, &u.EmailVerified, &u.PhoneVerified, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpsertProfile creates the profile on first sight of an identity and refreshes
// the identity-provider fields afterwards. Role and display name are never
// taken from the identity.
func (r *UserRepository) UpsertProfile(ctx context.Context, id models.Identity, at time.Time) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, display_name, role, email_verified, phone_verified, created_at, updated_at)
		VALUES ($1, $2, $3, 'PUBLIC', $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    email_verified = EXCLUDED.email_verified,
		    phone_verified = EXCLUDED.phone_verified,
		    updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		id.Subject, id.Email, id.DefaultDisplayName(), id.EmailVerified, id.PhoneVerified, at))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", classifyError(err))
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UpdateDisplayName changes a user's display name
func (r *UserRepository) UpdateDisplayName(ctx context.Context, id, name string, at time.Time) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET display_name = $2, updated_at = $3 WHERE id = $1
		RETURNING `+userColumns, id, name, at))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}
	return user, nil
}

// SetRole sets a user's role unconditionally
func (r *UserRepository) SetRole(ctx context.Context, id string, role models.UserRole, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, id, role, at)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
