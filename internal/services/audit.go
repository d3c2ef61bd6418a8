package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"event-marketplace/internal/models"
)

// AuditService handles audit logging operations
type AuditService struct {
	store  AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// LogAction logs an administrative action
func (s *AuditService) LogAction(ctx context.Context, actorID, action, targetType, targetID string, details any, meta models.RequestMeta) error {
	var detailsJSON json.RawMessage
	if details != nil {
		detailsBytes, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		detailsJSON = detailsBytes
	}

	req := &models.AuditLogCreateRequest{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    detailsJSON,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}

	_, err := s.store.CreateAuditLog(ctx, req, s.now())
	return err
}

// record writes an audit entry after the action already committed; a failure
// is logged rather than returned.
func (s *AuditService) record(ctx context.Context, actorID, action, targetType, targetID string, details any, meta models.RequestMeta) {
	if s == nil {
		return
	}
	if err := s.LogAction(ctx, actorID, action, targetType, targetID, details, meta); err != nil {
		s.logger.Error("failed to write audit log",
			"action", action, "target_type", targetType, "target_id", targetID, "error", err)
	}
}

// GetAuditLogs retrieves audit logs with pagination and filtering
func (s *AuditService) GetAuditLogs(ctx context.Context, actor *models.User, filter models.AuditLogFilter) ([]*models.AuditLog, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.store.ListAuditLogs(ctx, filter)
}
