package services

import (
	"context"
	"log/slog"
	"time"

	"event-marketplace/internal/config"
)

// StorageFactory creates the banner storage with R2 as primary and local disk as fallback
type StorageFactory struct {
	config *config.Config
	logger *slog.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *slog.Logger) *StorageFactory {
	return &StorageFactory{config: cfg, logger: logger}
}

// CreateStorageService returns R2 with local fallback when R2 is configured and
// reachable, and local storage alone otherwise.
func (f *StorageFactory) CreateStorageService(ctx context.Context) (StorageService, error) {
	local, err := NewLocalStorageService(f.config.Server.UploadDir, f.config.BaseURL()+"/uploads")
	if err != nil {
		return nil, err
	}

	r2, err := NewR2Service(ctx, f.config.R2, f.logger)
	if err != nil {
		f.logger.Warn("R2 unavailable, using local banner storage", "error", err)
		return local, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r2.HealthCheck(checkCtx); err != nil {
		f.logger.Warn("R2 health check failed, using local banner storage", "error", err)
		return local, nil
	}

	f.logger.Info("R2 banner storage initialized", "bucket", f.config.R2.BucketName)
	return NewStorageServiceWithFallback(r2, local, f.logger), nil
}
