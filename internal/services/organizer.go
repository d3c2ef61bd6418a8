package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"event-marketplace/internal/models"

	"github.com/google/uuid"
)

// OrganizerService handles organizer onboarding and review
type OrganizerService struct {
	store  OrganizerStore
	audit  *AuditService
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewOrganizerService creates a new organizer service
func NewOrganizerService(store OrganizerStore, audit *AuditService, logger *slog.Logger) *OrganizerService {
	return &OrganizerService{
		store:  store,
		audit:  audit,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SubmitKYC files an organizer application for user. A user may hold one
// application at a time; a suspended organizer may apply again.
func (s *OrganizerService) SubmitKYC(ctx context.Context, user *models.User, req *models.KYCRequest) (*models.Organizer, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	org, err := s.store.SaveOrganizer(ctx, &models.Organizer{
		ID:        s.newID(),
		UserID:    user.ID,
		OrgName:   req.OrgName,
		TaxID:     req.TaxID,
		Status:    models.OrganizerPending,
		CreatedAt: at,
		UpdatedAt: at,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("organizer application submitted", "organizer_id", org.ID, "user_id", user.ID)
	return org, nil
}

// GetMyOrganizer returns the organizer record of user
func (s *OrganizerService) GetMyOrganizer(ctx context.Context, user *models.User) (*models.Organizer, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return s.store.GetOrganizerByUser(ctx, user.ID)
}

// ListOrganizers lists organizers for review. An empty status lists all.
func (s *OrganizerService) ListOrganizers(ctx context.Context, admin *models.User, status models.OrganizerStatus) ([]*models.Organizer, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return s.store.ListOrganizers(ctx, status)
}

// Approve activates a pending organizer and grants the ORGANISER role
func (s *OrganizerService) Approve(ctx context.Context, admin *models.User, orgID string, meta models.RequestMeta) (*models.Organizer, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganizer(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Status != models.OrganizerPending {
		return nil, models.ErrInvalidTransition
	}

	org, err = s.store.ReviewOrganizer(ctx, orgID, models.OrganizerActive, "", s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, admin.ID, models.AuditActionOrganizerApprove, models.AuditTargetOrganizer, org.ID,
		map[string]any{"org_name": org.OrgName, "user_id": org.UserID}, meta)
	s.logger.Info("organizer approved", "organizer_id", org.ID, "admin_id", admin.ID)
	return org, nil
}

// Suspend suspends an organizer and revokes the ORGANISER role
func (s *OrganizerService) Suspend(ctx context.Context, admin *models.User, orgID, reason string, meta models.RequestMeta) (*models.Organizer, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &models.ValidationError{Field: "reason", Message: "a reason is required"}
	}
	org, err := s.store.GetOrganizer(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Status == models.OrganizerSuspended {
		return nil, models.ErrInvalidTransition
	}

	org, err = s.store.ReviewOrganizer(ctx, orgID, models.OrganizerSuspended, reason, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, admin.ID, models.AuditActionOrganizerSuspend, models.AuditTargetOrganizer, org.ID,
		map[string]any{"org_name": org.OrgName, "reason": reason}, meta)
	s.logger.Info("organizer suspended", "organizer_id", org.ID, "admin_id", admin.ID)
	return org, nil
}

// activeOrganizer returns user's organizer record if it may publish events
func activeOrganizer(ctx context.Context, store OrganizerStore, user *models.User) (*models.Organizer, error) {
	org, err := store.GetOrganizerByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, models.ErrOrganizerNotFound) {
			return nil, models.ErrForbidden
		}
		return nil, err
	}
	if !org.IsActive() {
		return nil, models.ErrForbidden
	}
	return org, nil
}
