package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-marketplace/internal/auth"
	"event-marketplace/internal/cache"
	"event-marketplace/internal/config"
	"event-marketplace/internal/database"
	"event-marketplace/internal/handlers"
	"event-marketplace/internal/logging"
	"event-marketplace/internal/messaging"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"
	"event-marketplace/internal/server"
	"event-marketplace/internal/services"

	"github.com/redis/go-redis/v9"
)

const devTokenTTL = 12 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	health := handlers.NewHealthHandler(logger)

	var (
		stores server.Stores
		memory *repositories.MemoryStore
	)
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database))
	switch {
	case err == nil:
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			return err
		}
		stores = server.PostgresStores(db.DB)
		health.Register("database", db.PingContext)
		logger.Info("database connection established", "host", cfg.Database.Host, "db", cfg.Database.DBName)
	case cfg.IsProduction():
		return err
	default:
		logger.Warn("database unavailable, serving sample events from memory", "error", err)
		memory = repositories.NewMemoryStore()
		memory.SeedSampleEvents(time.Now())
		stores = server.MemoryStores(memory)
	}

	var idempotency services.IdempotencyStore
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()
		store := cache.NewIdempotencyStore(client, cfg.Booking.IdempotencyTTL)
		idempotency = store
		health.Register("redis", store.Ping)
		logger.Info("idempotency keys stored in redis", "addr", opts.Addr)
	} else {
		logger.Info("REDIS_URL not set, Idempotency-Key handling disabled")
	}

	var publisher services.Publisher = messaging.NopPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := messaging.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Warn("rabbitmq unavailable, booking events will not be published", "error", err)
		} else {
			defer p.Close()
			publisher = p
			logger.Info("publishing booking events", "exchange", cfg.AMQP.Exchange)
		}
	}

	storage, err := services.NewStorageFactory(cfg, logger).CreateStorageService(ctx)
	if err != nil {
		return err
	}

	secret := cfg.Identity.JWTSecret
	devSecret := secret == ""
	if devSecret {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("IDP_JWT_SECRET not set, generated a throwaway signing secret")
	}
	verifier := auth.NewTokenVerifier(secret, cfg.Identity.Issuer, cfg.Identity.Audience)

	srv := server.New(server.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Stores:      stores,
		Publisher:   publisher,
		Idempotency: idempotency,
		Storage:     storage,
		Verifier:    verifier,
		Sessions:    auth.NewSessionStore(cfg.Session.Secret, cfg.Session.MaxAge, cfg.IsProduction()),
		Health:      health,
	})
	defer srv.Close()

	if devSecret && memory != nil {
		if err := logDevTokens(ctx, logger, memory, srv.Services, verifier); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr, "env", cfg.Server.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// logDevTokens prints bearer tokens for the seeded organiser and a local
// admin so the API can be exercised without an identity provider.
func logDevTokens(ctx context.Context, logger *slog.Logger, memory *repositories.MemoryStore, svc *server.Services, verifier *auth.TokenVerifier) error {
	admin := models.Identity{Subject: "dev-admin", Email: "admin@example.com", Name: "Local Admin", EmailVerified: true}
	if _, err := memory.UpsertProfile(ctx, admin, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := svc.Users.PromoteToAdmin(ctx, admin.Email); err != nil {
		return err
	}

	organizer, err := memory.GetUser(ctx, repositories.SampleOrganizerID)
	if err != nil {
		return err
	}
	identities := []models.Identity{
		admin,
		{Subject: organizer.ID, Email: organizer.Email, Name: organizer.DisplayName, EmailVerified: true},
	}
	for _, id := range identities {
		token, err := verifier.Issue(id, devTokenTTL)
		if err != nil {
			return err
		}
		logger.Info("development token", "email", id.Email, "token", token)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
