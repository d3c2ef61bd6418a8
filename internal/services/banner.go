package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"event-marketplace/internal/models"

	"github.com/google/uuid"
)

// BannerService stores processed event banners
type BannerService struct {
	events  EventStore
	storage StorageService
	logger  *slog.Logger
	now     func() time.Time
}

// NewBannerService creates a new banner service
func NewBannerService(events EventStore, storage StorageService, logger *slog.Logger) *BannerService {
	return &BannerService{events: events, storage: storage, logger: logger, now: time.Now}
}

// UploadBanner resizes img to the banner format, stores it and points the
// event at it. The previous banner, if any, is removed afterwards.
func (s *BannerService) UploadBanner(ctx context.Context, user *models.User, eventID string, img io.Reader) (*models.Event, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != user.ID && !user.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if !event.IsEditable() {
		return nil, models.ErrInvalidTransition
	}

	data, err := ProcessBanner(img)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("events/%s/banner-%s.jpg", event.ID, uuid.NewString())
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "image/jpeg", int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	if err := s.events.SetBanner(ctx, event.ID, url, key, s.now().UTC()); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned banner", "key", key, "error", delErr)
		}
		return nil, err
	}

	if event.BannerKey != "" {
		if err := s.storage.Delete(ctx, event.BannerKey); err != nil {
			s.logger.Warn("failed to delete previous banner", "key", event.BannerKey, "error", err)
		}
	}
	return s.events.GetEvent(ctx, event.ID)
}
