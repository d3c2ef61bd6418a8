package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"event-marketplace/internal/messaging"
	"event-marketplace/internal/models"

	"github.com/google/uuid"
)

// EventService handles organizer-side event publishing
type EventService struct {
	events     EventStore
	organizers OrganizerStore
	audit      *AuditService
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewEventService creates a new event service
func NewEventService(events EventStore, organizers OrganizerStore, audit *AuditService, publisher Publisher, logger *slog.Logger) *EventService {
	return &EventService{
		events:     events,
		organizers: organizers,
		audit:      audit,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// EventCancellation is published when an event is called off
type EventCancellation struct {
	EventID           string    `json:"event_id"`
	CancelledBy       string    `json:"cancelled_by"`
	CancelledBookings int       `json:"cancelled_bookings"`
	CancelledAt       time.Time `json:"cancelled_at"`
}

// CreateEvent publishes a new event for review
func (s *EventService) CreateEvent(ctx context.Context, user *models.User, req *models.EventCreateRequest) (*models.Event, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	org, err := activeOrganizer(ctx, s.organizers, user)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:          s.newID(),
		OrganizerID: org.ID,
		OwnerID:     user.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Location:    strings.TrimSpace(req.Location),
		StartsAt:    req.StartsAt.UTC(),
		Status:      models.EventPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, t := range req.Tiers {
		event.Tiers = append(event.Tiers, &models.Tier{
			ID:        s.newID(),
			EventID:   event.ID,
			Name:      strings.TrimSpace(t.Name),
			Price:     t.Price,
			Quantity:  t.Quantity,
			Position:  i,
			CreatedAt: now,
		})
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	s.logger.Info("event created", "event_id", event.ID, "organizer_id", org.ID, "tiers", len(event.Tiers))
	return event, nil
}

// UpdateEvent edits an event's details and tier capacities. Only the owner may
// edit, and only while the event is pending or approved.
func (s *EventService) UpdateEvent(ctx context.Context, user *models.User, eventID string, req *models.EventUpdateRequest) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, user, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsEditable() {
		return nil, models.ErrInvalidTransition
	}
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	event.Title = strings.TrimSpace(req.Title)
	event.Description = strings.TrimSpace(req.Description)
	event.Category = strings.TrimSpace(req.Category)
	event.Location = strings.TrimSpace(req.Location)
	event.StartsAt = req.StartsAt.UTC()
	event.UpdatedAt = now
	if err := s.events.UpdateEventDetails(ctx, event, req.Tiers); err != nil {
		return nil, err
	}
	return s.events.GetEvent(ctx, eventID)
}

// CancelEvent calls off an event. Outstanding bookings become CANCELLED.
// Organisers may cancel their own events; admins may cancel any.
func (s *EventService) CancelEvent(ctx context.Context, user *models.User, eventID string, meta models.RequestMeta) (*EventCancellation, error) {
	ctx = context.WithoutCancel(ctx)
	if err := requireUser(user); err != nil {
		return nil, err
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(user, event) {
		return nil, models.ErrForbidden
	}
	if err := event.CanCancel(); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	n, err := s.events.CancelEvent(ctx, eventID, at)
	if err != nil {
		return nil, err
	}
	result := &EventCancellation{EventID: eventID, CancelledBy: user.ID, CancelledBookings: n, CancelledAt: at}

	if user.ID != event.OwnerID {
		s.audit.record(ctx, user.ID, models.AuditActionEventCancel, models.AuditTargetEvent, eventID,
			map[string]any{"event_title": event.Title, "cancelled_bookings": n}, meta)
	}
	s.logger.Info("event cancelled", "event_id", eventID, "by", user.ID, "cancelled_bookings", n)
	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, messaging.BookingCancelled, result); err != nil {
			s.logger.Error("failed to publish event cancellation", "event_id", eventID, "error", err)
		}
	}
	return result, nil
}

// ListOrganizerEvents lists every event owned by the user's organizer record
func (s *EventService) ListOrganizerEvents(ctx context.Context, user *models.User) ([]*models.Event, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	org, err := s.organizers.GetOrganizerByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.events.ListEvents(ctx, models.EventFilter{OrganizerID: org.ID})
}

func (s *EventService) ownedEvent(ctx context.Context, user *models.User, eventID string) (*models.Event, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != user.ID {
		return nil, models.ErrForbidden
	}
	return event, nil
}
