// Package repository provides Postgres data access for the catalog, the similarity edge set and the
// embedding cache.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

// TracksRepository handles data access for the tracks table.
type TracksRepository struct {
	db *pgxpool.Pool
}

// NewTracksRepository creates a new tracks repository.
func NewTracksRepository(db *pgxpool.Pool) *TracksRepository {
	return &TracksRepository{db: db}
}

// LoadCatalog returns every track in ingest order. The order is stable across runs.
func (r *TracksRepository) LoadCatalog(ctx context.Context) ([]models.Track, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, artists, artist_ids, genre, genre_id, popularity, embedding_text,
		       danceability, energy, speechiness, acousticness, instrumentalness, liveness, valence, tempo,
		       updated_at
		FROM tracks
		ORDER BY ordinal, id`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track

	for rows.Next() {
		var t models.Track

		if err := rows.Scan(
			&t.ID, &t.Name, &t.Artists, &t.ArtistIDs, &t.Genre, &t.GenreID, &t.Popularity, &t.Text,
			&t.Audio.Danceability, &t.Audio.Energy, &t.Audio.Speechiness, &t.Audio.Acousticness,
			&t.Audio.Instrumentalness, &t.Audio.Liveness, &t.Audio.Valence, &t.Audio.Tempo,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}

		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog: %w", err)
	}

	return tracks, nil
}

// UpsertTracks inserts or updates tracks in one batch. The slice position becomes the track's ordinal.
func (r *TracksRepository) UpsertTracks(ctx context.Context, tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	now := time.Now()
	batch := &pgx.Batch{}

	for i, t := range tracks {
		batch.Queue(`
			INSERT INTO tracks (
				id, ordinal, name, artists, artist_ids, genre, genre_id, popularity, embedding_text,
				danceability, energy, speechiness, acousticness, instrumentalness, liveness, valence, tempo,
				updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (id) DO UPDATE SET
				ordinal = EXCLUDED.ordinal, name = EXCLUDED.name, artists = EXCLUDED.artists,
				artist_ids = EXCLUDED.artist_ids, genre = EXCLUDED.genre, genre_id = EXCLUDED.genre_id,
				popularity = EXCLUDED.popularity, embedding_text = EXCLUDED.embedding_text,
				danceability = EXCLUDED.danceability, energy = EXCLUDED.energy,
				speechiness = EXCLUDED.speechiness, acousticness = EXCLUDED.acousticness,
				instrumentalness = EXCLUDED.instrumentalness, liveness = EXCLUDED.liveness,
				valence = EXCLUDED.valence, tempo = EXCLUDED.tempo, updated_at = EXCLUDED.updated_at`,
			t.ID, i, t.Name, nonNil(t.Artists), nonNil(t.ArtistIDs), t.Genre, t.GenreID, t.Popularity, t.Text,
			t.Audio.Danceability, t.Audio.Energy, t.Audio.Speechiness, t.Audio.Acousticness,
			t.Audio.Instrumentalness, t.Audio.Liveness, t.Audio.Valence, t.Audio.Tempo,
			now,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert tracks: %w", err)
	}

	return nil
}

// DeleteTracksNotIn removes tracks whose id is not in ids. Returns the number of rows removed.
func (r *TracksRepository) DeleteTracksNotIn(ctx context.Context, ids []string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tracks WHERE NOT (id = ANY($1))`, nonNil(ids))
	if err != nil {
		return 0, fmt.Errorf("delete stale tracks: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Get returns the display fields of one track.
func (r *TracksRepository) Get(ctx context.Context, id string) (*models.TrackInfo, error) {
	var t models.TrackInfo

	err := r.db.QueryRow(ctx, `
		SELECT id, name, artists, genre, popularity, energy, valence
		FROM tracks
		WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Artists, &t.Genre, &t.Popularity, &t.Energy, &t.Valence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("track", "track not found")
		}

		return nil, fmt.Errorf("get track: %w", err)
	}

	return &t, nil
}

// List returns a page of tracks ordered by name.
func (r *TracksRepository) List(ctx context.Context, filters *models.ListTracksFilters) ([]models.TrackInfo, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, artists, genre, popularity, energy, valence
		FROM tracks
		ORDER BY name, id
		LIMIT $1 OFFSET $2`, filters.Limit, filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.TrackInfo{}

	for rows.Next() {
		var t models.TrackInfo
		if err := rows.Scan(&t.ID, &t.Name, &t.Artists, &t.Genre, &t.Popularity, &t.Energy, &t.Valence); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}

		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracks: %w", err)
	}

	return tracks, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
