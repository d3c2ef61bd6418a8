package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"event-marketplace/internal/config"
	"event-marketplace/internal/database"
	"event-marketplace/internal/logging"
	"event-marketplace/internal/models"
	"event-marketplace/internal/repositories"
	"event-marketplace/internal/services"

	"github.com/spf13/pflag"
)

func main() {
	email := pflag.String("email", "", "email of an existing user to promote to ADMIN")
	pflag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin --email user@example.com")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	audit := services.NewAuditService(repositories.NewAuditLogRepository(db.DB), logger)
	users := services.NewUserService(repositories.NewUserRepository(db.DB), audit, logger)

	user, err := users.PromoteToAdmin(ctx, *email)
	if err != nil {
		if models.IsNotFound(err) {
			logger.Error("no profile with that email; the user must sign in once first", "email", *email)
		} else {
			logger.Error("failed to promote user", "email", *email, "error", err)
		}
		os.Exit(1)
	}
	fmt.Printf("%s (%s) is now %s\n", user.Email, user.ID, user.Role)
}
