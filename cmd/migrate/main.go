package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"event-marketplace/internal/config"
	"event-marketplace/internal/database"
	"event-marketplace/internal/logging"

	"github.com/spf13/pflag"
)

func main() {
	status := pflag.Bool("status", false, "print which migrations have been applied and exit")
	pflag.Parse()

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

	if *status {
		if err := printStatus(ctx, db); err != nil {
			logger.Error("failed to read migration status", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := db.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")
}

func printStatus(ctx context.Context, db *database.DB) error {
	states, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	for _, s := range states {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", s.Version, s.Name, state)
	}
	return w.Flush()
}
