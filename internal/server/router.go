package server

import (
	"net/http"
	"time"

	"event-marketplace/internal/handlers"
	"event-marketplace/internal/middleware"
	"event-marketplace/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 30 * time.Second

// Server is the assembled HTTP surface
type Server struct {
	Router   http.Handler
	Services *Services
	limiter  *middleware.RateLimiter
}

// Close releases background resources held by the router
func (s *Server) Close() {
	s.limiter.Stop()
}

// New builds the services and the router
func New(deps Dependencies) *Server {
	svc := NewServices(deps)
	limiter := middleware.NewRateLimiter(deps.Config.RateLimit.Bookings, deps.Config.RateLimit.Window)
	return &Server{
		Router:   newRouter(deps, svc, limiter),
		Services: svc,
		limiter:  limiter,
	}
}

func newRouter(deps Dependencies, svc *Services, limiter *middleware.RateLimiter) http.Handler {
	logger := deps.Logger

	eventHandler := handlers.NewEventHandler(svc.Catalog, svc.Reservations, logger)
	ticketHandler := handlers.NewTicketHandler(svc.Tickets, svc.Refunds, logger)
	sessionHandler := handlers.NewSessionHandler(deps.Verifier, svc.Users, deps.Sessions, logger)
	profileHandler := handlers.NewProfileHandler(svc.Users, logger)
	organizerHandler := handlers.NewOrganizerHandler(svc.Organizers, svc.Events, svc.Banners, logger)
	adminHandler := handlers.NewAdminHandler(svc.Organizers, svc.Moderation, svc.Audit, svc.Admin, logger)
	authMiddleware := middleware.NewAuthMiddleware(deps.Verifier, deps.Sessions, svc.Users, logger)

	health := deps.Health
	if health == nil {
		health = handlers.NewHealthHandler(logger)
	}

	r := chi.NewRouter()
	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(logger))
	r.Use(chimiddleware.CleanPath)
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(deps.Config.Server.AllowedOrigins)))

	r.Get("/healthz", health.Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.Config.Server.UploadDir))))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.LoadUser)
		r.Use(middleware.RequestLogger(logger))
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Post("/session", sessionHandler.Create)
		r.Delete("/session", sessionHandler.Delete)

		r.Get("/events", eventHandler.ListEvents)
		r.Get("/events/{eventID}", eventHandler.GetEvent)
		r.Get("/events/{eventID}/tiers/{tierID}/quote", eventHandler.Quote)
		r.Get("/organizers/{organizerID}/events", eventHandler.OrganizerEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.With(middleware.RateLimit(limiter)).Post("/events/{eventID}/bookings", eventHandler.Book)

			r.Get("/me", profileHandler.Get)
			r.Patch("/me", profileHandler.Update)
			r.Get("/me/tickets", ticketHandler.MyTickets)

			r.Get("/tickets/{ticketID}", ticketHandler.GetTicket)
			r.Get("/tickets/{ticketID}/qr.png", ticketHandler.QRCode)
			r.Post("/tickets/{ticketID}/cancel", ticketHandler.Cancel)

			r.Post("/organizers", organizerHandler.SubmitKYC)
			r.Get("/organizers/me", organizerHandler.MyOrganizer)

			r.With(middleware.RequireRole(models.RoleOrganiser)).Post("/checkin", ticketHandler.Checkin)

			r.Route("/organizer", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleOrganiser))
				r.Get("/events", organizerHandler.ListEvents)
				r.Post("/events", organizerHandler.CreateEvent)
				r.Put("/events/{eventID}", organizerHandler.UpdateEvent)
				r.Post("/events/{eventID}/cancel", organizerHandler.CancelEvent)
				r.Post("/events/{eventID}/banner", organizerHandler.UploadBanner)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/organizers", adminHandler.ListOrganizers)
				r.Post("/organizers/{id}/approve", adminHandler.ApproveOrganizer)
				r.Post("/organizers/{id}/suspend", adminHandler.SuspendOrganizer)
				r.Get("/events/pending", adminHandler.PendingEvents)
				r.Post("/events/{eventID}/approve", adminHandler.ApproveEvent)
				r.Post("/events/{eventID}/reject", adminHandler.RejectEvent)
				r.Post("/events/{eventID}/cancel", organizerHandler.CancelEvent)
				r.Get("/audit-log", adminHandler.AuditLog)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	return r
}
