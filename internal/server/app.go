// Package server wires the stores, services and handlers into an HTTP router.
package server

import (
	"database/sql"
	"log/slog"

	"event-marketplace/internal/auth"
	"event-marketplace/internal/config"
	"event-marketplace/internal/handlers"
	"event-marketplace/internal/repositories"
	"event-marketplace/internal/services"
)

// Stores is the persistence the services run on
type Stores struct {
	Events     services.EventStore
	Bookings   services.BookingStore
	Users      services.UserStore
	Organizers services.OrganizerStore
	Audit      services.AuditStore
	Stats      services.StatsStore
}

// PostgresStores builds the repository set over a database connection
func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Events:     repositories.NewEventRepository(db),
		Bookings:   repositories.NewBookingRepository(db),
		Users:      repositories.NewUserRepository(db),
		Organizers: repositories.NewOrganizerRepository(db),
		Audit:      repositories.NewAuditLogRepository(db),
		Stats:      repositories.NewStatsRepository(db),
	}
}

// MemoryStores backs every store with the same in-memory store
func MemoryStores(m *repositories.MemoryStore) Stores {
	return Stores{
		Events:     m,
		Bookings:   m,
		Users:      m,
		Organizers: m,
		Audit:      m,
		Stats:      m,
	}
}

// Dependencies holds what the router needs beyond the stores. Idempotency
// may be nil, which disables Idempotency-Key handling.
type Dependencies struct {
	Config      *config.Config
	Logger      *slog.Logger
	Stores      Stores
	Publisher   services.Publisher
	Idempotency services.IdempotencyStore
	Storage     services.StorageService
	Verifier    *auth.TokenVerifier
	Sessions    *auth.SessionStore
	Health      *handlers.HealthHandler
}

// Services is the full service layer, exposed so commands can reuse it
type Services struct {
	Audit        *services.AuditService
	Catalog      *services.CatalogService
	Reservations *services.ReservationService
	Refunds      *services.RefundService
	Tickets      *services.TicketService
	Users        *services.UserService
	Organizers   *services.OrganizerService
	Events       *services.EventService
	Moderation   *services.ModerationService
	Banners      *services.BannerService
	Admin        *services.AdminService
}

// NewServices builds the service layer over deps
func NewServices(deps Dependencies) *Services {
	st := deps.Stores
	logger := deps.Logger
	booking := deps.Config.Booking

	opts := []services.ReservationOption{
		services.WithConvenienceFee(booking.ConvenienceFee),
		services.WithMaxAttempts(booking.ReserveMaxAttempts),
	}
	if deps.Idempotency != nil {
		opts = append(opts, services.WithIdempotency(deps.Idempotency))
	}

	audit := services.NewAuditService(st.Audit, logger)
	return &Services{
		Audit:        audit,
		Catalog:      services.NewCatalogService(st.Events, booking.ConvenienceFee),
		Reservations: services.NewReservationService(st.Events, st.Bookings, deps.Publisher, logger, opts...),
		Refunds:      services.NewRefundService(st.Events, st.Bookings, audit, deps.Publisher, logger),
		Tickets:      services.NewTicketService(st.Events, st.Bookings, deps.Publisher, logger),
		Users:        services.NewUserService(st.Users, audit, logger),
		Organizers:   services.NewOrganizerService(st.Organizers, audit, logger),
		Events:       services.NewEventService(st.Events, st.Organizers, audit, deps.Publisher, logger),
		Moderation:   services.NewModerationService(st.Events, audit, logger),
		Banners:      services.NewBannerService(st.Events, deps.Storage, logger),
		Admin:        services.NewAdminService(st.Stats),
	}
}
