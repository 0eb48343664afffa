package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// embeddingBatchSize bounds the number of upserts sent in one pgx batch.
const embeddingBatchSize = 1000

// EmbeddingsRepository handles data access for the embedding_cache table.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// GetEmbeddings returns the cached vectors for model keyed by text hash. Hashes with no row are absent
// from the result.
func (r *EmbeddingsRepository) GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT text_hash, embedding FROM embedding_cache WHERE model = $1 AND text_hash = ANY($2)`,
		model, hashes,
	)
	if err != nil {
		return nil, fmt.Errorf("get cached embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			hash string
			vec  pgvector.Vector
		)

		if err := rows.Scan(&hash, &vec); err != nil {
			return nil, fmt.Errorf("scan cached embedding: %w", err)
		}

		out[hash] = vec.Slice()
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cached embeddings: %w", err)
	}

	return out, nil
}

// PutEmbeddings upserts vectors for model keyed by text hash.
func (r *EmbeddingsRepository) PutEmbeddings(ctx context.Context, model string, entries map[string][]float32) error {
	batch := &pgx.Batch{}

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}

		err := r.db.SendBatch(ctx, batch).Close()
		batch = &pgx.Batch{}

		return err
	}

	for hash, vec := range entries {
		batch.Queue(`
			INSERT INTO embedding_cache (model, text_hash, embedding)
			VALUES ($1, $2, $3)
			ON CONFLICT (model, text_hash) DO UPDATE SET embedding = EXCLUDED.embedding, created_at = NOW()`,
			model, hash, pgvector.NewVector(vec),
		)

		if batch.Len() >= embeddingBatchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("put cached embeddings: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return fmt.Errorf("put cached embeddings: %w", err)
	}

	return nil
}
