// Command similarity runs the track similarity pipeline once and exits.
//
// Usage:
//
//	go run ./cmd/similarity
//
// Configuration comes from the environment (see .env.example). DATABASE_URL is only needed
// when the catalog source, a sink or the embedding cache uses Postgres.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundgraph/hub/internal/bootstrap"
	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/pkg/database"
)

const serviceName = "soundgraph-similarity"

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

	ctx, cancel := context.WithTimeout(ctx, cfg.SimilarityTimeout)
	defer cancel()

	obs, err := bootstrap.SetupObservability(cfg, serviceName)
	if err != nil {
		slog.Error("Failed to set up observability", "error", err)

		return 1
	}

	defer func() {
		if err := obs.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Error("shutdown observability", "error", err)
		}
	}()

	var db *pgxpool.Pool

	if bootstrap.NeedsDatabase(cfg) {
		db, err = database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithVectorTypes())
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)

			return 1
		}
		defer db.Close()
	}

	pipeline, err := bootstrap.NewSimilarityPipeline(ctx, cfg, db, obs)
	if err != nil {
		slog.Error("Failed to build similarity pipeline", "error", err)

		return 1
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		slog.Error("Similarity run failed", "error", err)

		return 1
	}

	slog.Info("Similarity run finished",
		"run_id", result.ID,
		"tracks", result.TrackCount,
		"edges", result.EdgeCount,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)

	return 0
}
