//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/migrations"
	"github.com/soundgraph/hub/pkg/database"
)

// setupTestDB starts a pgvector-enabled Postgres, applies the schema and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "pgvector/pgvector:pg16",
		tcpostgres.WithDatabase("soundgraph"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	bootstrap, err := database.NewPostgresPool(ctx, dsn)
	require.NoError(t, err)

	applied, err := database.Migrate(ctx, bootstrap, migrations.FS)
	require.NoError(t, err)
	assert.NotEmpty(t, applied)

	again, err := database.Migrate(ctx, bootstrap, migrations.FS)
	require.NoError(t, err)
	assert.Empty(t, again, "migrations are applied once")

	bootstrap.Close()

	db, err := database.NewPostgresPool(ctx, dsn, database.WithVectorTypes())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func testTracks() []models.Track {
	return []models.Track{
		{ID: "t2", Name: "Beta", Artists: []string{"B"}, Genre: "rock", Popularity: 10, Text: "Beta by B genre rock",
			Audio: models.AudioFeatures{Energy: 0.5, Valence: 0.4}},
		{ID: "t1", Name: "Alpha", Artists: []string{"A"}, Genre: "pop", Popularity: 90, Text: "Alpha by A genre pop",
			Audio: models.AudioFeatures{Energy: 0.9, Valence: 0.8}},
		{ID: "t3", Name: "Gamma", Genre: "jazz", Popularity: 50},
	}
}

func TestRepositories_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tracks := NewTracksRepository(db)
	similar := NewSimilarityRepository(db)
	cache := NewEmbeddingsRepository(db)

	t.Run("catalog keeps ingest order", func(t *testing.T) {
		require.NoError(t, tracks.UpsertTracks(ctx, testTracks()))

		got, err := tracks.LoadCatalog(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "t2", got[0].ID)
		assert.Equal(t, "t1", got[1].ID)
		assert.Equal(t, "Beta by B genre rock", got[0].Text)
		assert.InDelta(t, 0.9, got[1].Audio.Energy, 1e-12)
	})

	t.Run("get and list", func(t *testing.T) {
		info, err := tracks.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Alpha", info.Name)
		assert.Equal(t, []string{"A"}, info.Artists)

		_, err = tracks.Get(ctx, "missing")
		assert.ErrorIs(t, err, huberrors.ErrNotFound)

		page, err := tracks.List(ctx, &models.ListTracksFilters{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "Alpha", page[0].Name)
		assert.Equal(t, "Beta", page[1].Name)
	})

	t.Run("latest run not found before any run", func(t *testing.T) {
		_, err := similar.LatestRun(ctx)
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})

	t.Run("replace all swaps the edge set", func(t *testing.T) {
		first := &models.SimilarityRun{ID: uuid.Must(uuid.NewV7()), StartedAt: time.Now(), FinishedAt: time.Now(), K: 2, Strategy: "exact"}
		require.NoError(t, similar.ReplaceAll(ctx, first, []models.SimilarityEdge{
			{SourceID: "t1", TargetID: "t2", Score: 0.1, Rank: 1},
		}))

		second := &models.SimilarityRun{
			ID: uuid.Must(uuid.NewV7()), StartedAt: time.Now(), FinishedAt: time.Now().Add(time.Second),
			K: 2, Strategy: "exact", EdgeCount: 2,
		}
		require.NoError(t, similar.ReplaceAll(ctx, second, []models.SimilarityEdge{
			{SourceID: "t1", TargetID: "t2", Score: 0.9, Rank: 1},
			{SourceID: "t1", TargetID: "t3", Score: 0.7, Rank: 2},
		}))

		byScore, err := similar.ListSimilar(ctx, "t1", 5, models.SimilarOrderByScore)
		require.NoError(t, err)
		require.Len(t, byScore, 2)
		assert.Equal(t, "t2", byScore[0].TrackID)
		assert.InDelta(t, 0.9, byScore[0].Score, 1e-12)
		assert.Equal(t, second.ID, byScore[0].RunID)

		byPopularity, err := similar.ListSimilar(ctx, "t1", 5, models.SimilarOrderByPopularity)
		require.NoError(t, err)
		assert.Equal(t, "t3", byPopularity[0].TrackID)

		latest, err := similar.LatestRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
	})

	t.Run("failed replace keeps previous edges", func(t *testing.T) {
		run := &models.SimilarityRun{ID: uuid.Must(uuid.NewV7()), StartedAt: time.Now(), FinishedAt: time.Now(), K: 1, Strategy: "exact"}
		err := similar.ReplaceAll(ctx, run, []models.SimilarityEdge{
			{SourceID: "t2", TargetID: "t2", Score: 1, Rank: 1},
		})
		require.Error(t, err)

		got, err := similar.ListSimilar(ctx, "t1", 5, models.SimilarOrderByScore)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("aborted stage keeps previous edges", func(t *testing.T) {
		run := &models.SimilarityRun{ID: uuid.Must(uuid.NewV7()), StartedAt: time.Now(), FinishedAt: time.Now(), K: 1, Strategy: "exact"}
		staged, err := similar.Stage(ctx, run, []models.SimilarityEdge{
			{SourceID: "t1", TargetID: "t3", Score: 0.5, Rank: 1},
		})
		require.NoError(t, err)

		staged.Abort(ctx)

		got, err := similar.ListSimilar(ctx, "t1", 5, models.SimilarOrderByScore)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		latest, err := similar.LatestRun(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, run.ID, latest.ID)
	})

	t.Run("embedding cache round trip", func(t *testing.T) {
		require.NoError(t, cache.PutEmbeddings(ctx, "mini", map[string][]float32{
			"h1": {1, 0, 0},
			"h2": {0, 1, 0},
		}))

		got, err := cache.GetEmbeddings(ctx, "mini", []string{"h1", "h3"})
		require.NoError(t, err)
		assert.Equal(t, map[string][]float32{"h1": {1, 0, 0}}, got)

		other, err := cache.GetEmbeddings(ctx, "other-model", []string{"h1"})
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("delete tracks not in", func(t *testing.T) {
		n, err := tracks.DeleteTracksNotIn(ctx, []string{"t1", "t2"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
