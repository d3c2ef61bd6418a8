package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"event-marketplace/internal/models"
)

// ModerationService handles admin review of submitted events
type ModerationService struct {
	events EventStore
	audit  *AuditService
	logger *slog.Logger
	now    func() time.Time
}

// NewModerationService creates a new moderation service
func NewModerationService(events EventStore, audit *AuditService, logger *slog.Logger) *ModerationService {
	return &ModerationService{events: events, audit: audit, logger: logger, now: time.Now}
}

// ListPending returns events waiting for review, oldest start first
func (s *ModerationService) ListPending(ctx context.Context, admin *models.User, limit, offset int) ([]*models.Event, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return s.events.ListEvents(ctx, models.EventFilter{Status: models.EventPending, Limit: limit, Offset: offset})
}

// Approve opens a pending event for booking
func (s *ModerationService) Approve(ctx context.Context, admin *models.User, eventID string, meta models.RequestMeta) (*models.Event, error) {
	return s.moderate(ctx, admin, eventID, models.EventApproved, "", meta)
}

// Reject turns a pending event down. A reason is required.
func (s *ModerationService) Reject(ctx context.Context, admin *models.User, eventID, reason string, meta models.RequestMeta) (*models.Event, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &models.ValidationError{Field: "reason", Message: "a rejection reason is required"}
	}
	return s.moderate(ctx, admin, eventID, models.EventRejected, reason, meta)
}

func (s *ModerationService) moderate(ctx context.Context, admin *models.User, eventID string, to models.EventStatus, reason string, meta models.RequestMeta) (*models.Event, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := event.CanModerate(to); err != nil {
		return nil, err
	}

	event, err = s.events.ModerateEvent(ctx, eventID, to, admin.ID, reason, s.now().UTC())
	if err != nil {
		return nil, err
	}

	action := models.AuditActionEventApprove
	details := map[string]any{"event_title": event.Title, "organizer_id": event.OrganizerID}
	if to == models.EventRejected {
		action = models.AuditActionEventReject
		details["rejection_reason"] = reason
	}
	s.audit.record(ctx, admin.ID, action, models.AuditTargetEvent, eventID, details, meta)
	s.logger.Info("event moderated", "event_id", eventID, "status", to, "admin_id", admin.ID)
	return event, nil
}
