package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundgraph/hub/internal/export"
	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

// SimilarityRepository stores the similarity edge set and the run that produced it.
type SimilarityRepository struct {
	db *pgxpool.Pool
}

// NewSimilarityRepository creates a new similarity repository.
func NewSimilarityRepository(db *pgxpool.Pool) *SimilarityRepository {
	return &SimilarityRepository{db: db}
}

var edgeColumns = []string{"run_id", "source_track_id", "target_track_id", "rank", "score"}

// ReplaceAll swaps the whole edge set for edges in one transaction. On any error the previous
// edge set is left untouched.
func (r *SimilarityRepository) ReplaceAll(ctx context.Context, run *models.SimilarityRun, edges []models.SimilarityEdge) error {
	return export.StageAndCommit(ctx, r, run, edges)
}

// Stage writes the run row and the new edge set inside a transaction that is left open.
// Commit publishes it; Abort rolls it back. The transaction holds a pool connection until then.
func (r *SimilarityRepository) Stage(
	ctx context.Context, run *models.SimilarityRun, edges []models.SimilarityEdge,
) (_ export.Staged, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO similarity_runs (id, started_at, finished_at, track_count, edge_count, k, embedding_model, strategy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.StartedAt, run.FinishedAt, run.TrackCount, run.EdgeCount, run.K, run.EmbeddingModel, run.Strategy,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM similar_tracks`); err != nil {
		return nil, fmt.Errorf("clear edges: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"similar_tracks"}, edgeColumns,
		pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
			e := edges[i]

			return []any{run.ID, e.SourceID, e.TargetID, e.Rank, e.Score}, nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("copy edges: %w", err)
	}

	if int(n) != len(edges) {
		err = fmt.Errorf("copy edges: wrote %d of %d rows", n, len(edges))

		return nil, err
	}

	return &stagedEdges{tx: tx}, nil
}

type stagedEdges struct {
	tx pgx.Tx
}

func (s *stagedEdges) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit edges: %w", err)
	}

	return nil
}

// Abort rolls back; it is a no-op after a successful Commit.
func (s *stagedEdges) Abort(ctx context.Context) {
	_ = s.tx.Rollback(context.WithoutCancel(ctx))
}

var _ export.StagingSink = (*SimilarityRepository)(nil)

// ListSimilar returns up to limit persisted neighbors of trackID joined with their display fields.
// orderBy is models.SimilarOrderByScore (rank order) or models.SimilarOrderByPopularity.
// Neighbors missing from the tracks table are still returned with empty display fields.
func (r *SimilarityRepository) ListSimilar(ctx context.Context, trackID string, limit int, orderBy string) ([]models.SimilarTrack, error) {
	order := "st.rank"
	if orderBy == models.SimilarOrderByPopularity {
		order = "COALESCE(t.popularity, 0) DESC, st.rank"
	}

	rows, err := r.db.Query(ctx, `
		SELECT st.target_track_id, COALESCE(t.name, ''), COALESCE(t.artists, '{}'),
		       COALESCE(t.popularity, 0), st.score, st.rank, st.run_id
		FROM similar_tracks st
		LEFT JOIN tracks t ON t.id = st.target_track_id
		WHERE st.source_track_id = $1
		ORDER BY `+order+`
		LIMIT $2`, trackID, limit)
	if err != nil {
		return nil, fmt.Errorf("list similar tracks: %w", err)
	}
	defer rows.Close()

	result := []models.SimilarTrack{}

	for rows.Next() {
		var s models.SimilarTrack
		if err := rows.Scan(&s.TrackID, &s.Name, &s.Artists, &s.Popularity, &s.Score, &s.Rank, &s.RunID); err != nil {
			return nil, fmt.Errorf("scan similar track: %w", err)
		}

		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating similar tracks: %w", err)
	}

	return result, nil
}

// LatestRun returns the most recently finished run.
func (r *SimilarityRepository) LatestRun(ctx context.Context) (*models.SimilarityRun, error) {
	var run models.SimilarityRun

	err := r.db.QueryRow(ctx, `
		SELECT id, started_at, finished_at, track_count, edge_count, k, embedding_model, strategy
		FROM similarity_runs
		ORDER BY finished_at DESC
		LIMIT 1`,
	).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.TrackCount, &run.EdgeCount, &run.K,
		&run.EmbeddingModel, &run.Strategy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("similarity_run", "no similarity run has completed")
		}

		return nil, fmt.Errorf("latest run: %w", err)
	}

	return &run, nil
}
