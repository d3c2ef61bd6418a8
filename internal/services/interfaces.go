package services

import (
	"context"
	"time"

	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"
)

// CatalogStore is the read side of the event catalog
type CatalogStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)
}

// EventStore adds the organizer and moderation writes to the catalog
type EventStore interface {
	CatalogStore
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEventDetails(ctx context.Context, event *models.Event, changes []models.TierQuantityChange) error
	ModerateEvent(ctx context.Context, eventID string, to models.EventStatus, reviewerID, reason string, at time.Time) (*models.Event, error)
	CancelEvent(ctx context.Context, eventID string, at time.Time) (int, error)
	SetBanner(ctx context.Context, eventID, url, key string, at time.Time) error
}

// BookingStore owns bookings, tickets and the inventory transaction
type BookingStore interface {
	RunInTx(ctx context.Context, fn func(tx repositories.InventoryTx) error) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.BookingDetail, error)
}

type UserStore interface {
	UpsertProfile(ctx context.Context, id models.Identity, at time.Time) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateDisplayName(ctx context.Context, id, name string, at time.Time) (*models.User, error)
	SetRole(ctx context.Context, id string, role models.UserRole, at time.Time) error
}

type OrganizerStore interface {
	SaveOrganizer(ctx context.Context, org *models.Organizer) (*models.Organizer, error)
	GetOrganizer(ctx context.Context, id string) (*models.Organizer, error)
	GetOrganizerByUser(ctx context.Context, userID string) (*models.Organizer, error)
	ListOrganizers(ctx context.Context, status models.OrganizerStatus) ([]*models.Organizer, error)
	ReviewOrganizer(ctx context.Context, orgID string, status models.OrganizerStatus, note string, at time.Time) (*models.Organizer, error)
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, req *models.AuditLogCreateRequest, at time.Time) (*models.AuditLog, error)
	ListAuditLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, int, error)
}

type StatsStore interface {
	Stats(ctx context.Context) (*models.AdminStats, error)
}

// Publisher delivers booking lifecycle events to the message broker
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// IdempotencyStore maps a client Idempotency-Key to the ticket it produced
type IdempotencyStore interface {
	Begin(ctx context.Context, userID, key string) (string, error)
	Complete(ctx context.Context, userID, key, ticketID string) error
	Release(ctx context.Context, userID, key string) error
}
