// Command migrate applies the SQL schema and River's job tables.
//
// Usage:
//
//	go run ./cmd/migrate
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/soundgraph/hub/internal/bootstrap"
	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/migrations"
	"github.com/soundgraph/hub/pkg/database"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	bootstrap.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// No vector type registration here: the extension is created by the first migration.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return 1
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, migrations.FS)
	if err != nil {
		slog.Error("Schema migration failed", "error", err)

		return 1
	}

	slog.Info("Schema migrations applied", "count", len(applied), "versions", applied)

	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		slog.Error("Failed to create river migrator", "error", err)

		return 1
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		slog.Error("River migration failed", "error", err)

		return 1
	}

	for _, v := range res.Versions {
		slog.Info("River migration applied", "version", v.Version, "duration", v.Duration)
	}

	return 0
}
