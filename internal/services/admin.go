package services

import (
	"context"

	"event-marketplace/internal/models"
)

// AdminService serves the admin console summary
type AdminService struct {
	stats StatsStore
}

func NewAdminService(stats StatsStore) *AdminService {
	return &AdminService{stats: stats}
}

// Stats returns marketplace counts by status and the gross booked amount
func (s *AdminService) Stats(ctx context.Context, admin *models.User) (*models.AdminStats, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return s.stats.Stats(ctx)
}
