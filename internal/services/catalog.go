package services

import (
	"context"
	"time"

	"event-marketplace/internal/models"
)

// CatalogService serves the public event listing and checkout quotes
type CatalogService struct {
	events CatalogStore
	fee    int64
	now    func() time.Time
}

// NewCatalogService creates a catalog service charging fee on every ticket
func NewCatalogService(events CatalogStore, fee int64) *CatalogService {
	return &CatalogService{events: events, fee: fee, now: time.Now}
}

// ListEvents returns approved events matching filter, soonest first
func (s *CatalogService) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	filter.Status = models.EventApproved
	filter.OrganizerID = ""
	return s.events.ListEvents(ctx, filter)
}

// OrganizerEvents returns an organizer's approved events for their public
// profile, split into upcoming (soonest first) and past (most recent first).
func (s *CatalogService) OrganizerEvents(ctx context.Context, organizerID string) (*models.OrganizerEvents, error) {
	if organizerID == "" {
		return nil, models.ErrOrganizerNotFound
	}
	events, err := s.events.ListEvents(ctx, models.EventFilter{Status: models.EventApproved, OrganizerID: organizerID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &models.OrganizerEvents{
		OrganizerID: organizerID,
		Upcoming:    []*models.Event{},
		Past:        []*models.Event{},
	}
	for _, e := range events {
		if e.StartsAt.Before(now) {
			out.Past = append([]*models.Event{e}, out.Past...)
			continue
		}
		out.Upcoming = append(out.Upcoming, e)
	}
	return out, nil
}

// GetEvent returns an event. Events that are not approved are only visible
// to their organizer and to admins.
func (s *CatalogService) GetEvent(ctx context.Context, id string, viewer *models.User) (*models.Event, error) {
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.IsBookable() {
		return event, nil
	}
	if viewer != nil && canManageEvent(viewer, event) {
		return event, nil
	}
	return nil, models.ErrEventNotFound
}

// Quote prices one ticket of a tier without reserving it
func (s *CatalogService) Quote(ctx context.Context, eventID, tierID string) (*models.Quote, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsBookable() {
		return nil, models.ErrEventUnavailable
	}
	tier := event.FindTier(tierID)
	if tier == nil {
		return nil, models.ErrTierNotFound
	}
	return models.NewQuote(tier, s.fee), nil
}
