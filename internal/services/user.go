package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"event-marketplace/internal/models"
)

// UserService maintains profiles for identities issued by the identity provider
type UserService struct {
	users  UserStore
	audit  *AuditService
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore, audit *AuditService, logger *slog.Logger) *UserService {
	return &UserService{users: users, audit: audit, logger: logger, now: time.Now}
}

// EnsureProfile returns the persisted profile for a verified identity,
// creating it on first sight. Authority is always read from the stored row.
func (s *UserService) EnsureProfile(ctx context.Context, id models.Identity) (*models.User, error) {
	if id.Subject == "" {
		return nil, models.ErrUnauthenticated
	}
	return s.users.UpsertProfile(ctx, id, s.now().UTC())
}

// GetProfile returns the user's own profile
func (s *UserService) GetProfile(ctx context.Context, user *models.User) (*models.User, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, user.ID)
}

// UpdateProfile changes the user's display name
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, req *models.ProfileUpdateRequest) (*models.User, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.users.UpdateDisplayName(ctx, user.ID, strings.TrimSpace(req.DisplayName), s.now().UTC())
}

// PromoteToAdmin grants the ADMIN role to the user with the given email.
// It is used by operator tooling, so there is no acting user to check.
func (s *UserService) PromoteToAdmin(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := models.ValidateEmail(email); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return user, nil
	}
	if err := s.users.SetRole(ctx, user.ID, models.RoleAdmin, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("user promoted to admin", "user_id", user.ID, "previous_role", user.Role)
	s.audit.record(ctx, user.ID, models.AuditActionUserRoleChange, models.AuditTargetUser, user.ID,
		map[string]any{"from": user.Role, "to": models.RoleAdmin}, models.RequestMeta{UserAgent: "create-admin"})
	user.Role = models.RoleAdmin
	return user, nil
}
