// Command ingest loads a cleaned catalog CSV into the tracks table.
//
// Usage:
//
//	go run ./cmd/ingest -file /path/to/dataset_clean.csv [-prune] [-dry-run]
//
// Artist and genre ids are derived with catalog.Slug. Distinct display names that share a slug
// are reported and the first display name is kept.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundgraph/hub/internal/bootstrap"
	"github.com/soundgraph/hub/internal/catalog"
	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/internal/repository"
	"github.com/soundgraph/hub/pkg/database"
)

// options holds the CLI flags.
type options struct {
	FilePath string
	Prune    bool
	DryRun   bool
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.FilePath, "file", "", "Path to the cleaned catalog CSV (required)")
	flag.BoolVar(&opts.Prune, "prune", false, "Delete tracks that are not in the file")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Parse and report without writing to the database")
	flag.Parse()

	return opts
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	if opts.FilePath == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		flag.Usage()

		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	bootstrap.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracks, err := catalog.NewCSVSource(opts.FilePath).LoadCatalog(ctx)
	if err != nil {
		slog.Error("Failed to read catalog", "error", err)

		return 1
	}

	artists, genres := assignIDs(tracks)
	reportCollisions("artist", artists)
	reportCollisions("genre", genres)

	slog.Info("Catalog parsed",
		"tracks", len(tracks),
		"artists", artists.Len(),
		"genres", genres.Len(),
	)

	if opts.DryRun {
		return 0
	}

	if err := store(ctx, cfg, tracks, opts.Prune); err != nil {
		slog.Error("Ingest failed", "error", err)

		return 1
	}

	return 0
}

// assignIDs fills ArtistIDs and GenreID on every track and returns the registries used.
func assignIDs(tracks []models.Track) (*catalog.SlugRegistry, *catalog.SlugRegistry) {
	artists := catalog.NewSlugRegistry()
	genres := catalog.NewSlugRegistry()

	for i := range tracks {
		t := &tracks[i]

		t.ArtistIDs = make([]string, 0, len(t.Artists))
		for _, name := range t.Artists {
			slug, _ := artists.Register(name)
			if slug != "" {
				t.ArtistIDs = append(t.ArtistIDs, slug)
			}
		}

		if t.Genre != "" {
			t.GenreID, _ = genres.Register(t.Genre)
		}
	}

	return artists, genres
}

func reportCollisions(kind string, registry *catalog.SlugRegistry) {
	collisions := registry.Collisions()
	for _, c := range collisions {
		slog.Warn("slug collision, keeping first display name",
			"kind", kind,
			"slug", c.Slug,
			"kept", c.Kept,
			"dropped", c.Dropped,
		)
	}

	if len(collisions) > 0 {
		slog.Warn("slug collisions found", "kind", kind, "count", len(collisions))
	}
}

func store(ctx context.Context, cfg *config.Config, tracks []models.Track, prune bool) error {
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := repository.NewTracksRepository(db)

	if err := repo.UpsertTracks(ctx, tracks); err != nil {
		return fmt.Errorf("upsert tracks: %w", err)
	}

	slog.Info("Tracks upserted", "count", len(tracks))

	if !prune {
		return nil
	}

	ids := make([]string, len(tracks))
	for i := range tracks {
		ids[i] = tracks[i].ID
	}

	removed, err := repo.DeleteTracksNotIn(ctx, ids)
	if err != nil {
		return fmt.Errorf("prune tracks: %w", err)
	}

	slog.Info("Stale tracks removed", "count", removed)

	return nil
}
