package jobs

import (
	"context"

	"github.com/soundgraph/hub/internal/models"
)

// JobInserter is an interface for inserting jobs into the queue.
// This allows handlers to enqueue jobs without knowing about River directly.
type JobInserter interface {
	// InsertRecompute enqueues a recompute job. An equivalent job that has not finished yet is
	// reused and reported as a duplicate.
	InsertRecompute(ctx context.Context, args SimilarityRecomputeArgs) (*models.EnqueueRunResponse, error)
}
