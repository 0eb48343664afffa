package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/internal/observability"
)

// RiverJobInserter implements JobInserter using the River client.
type RiverJobInserter struct {
	client  *river.Client[pgx.Tx]
	metrics observability.JobMetrics
}

// NewRiverJobInserter creates a new River-based job inserter. metrics may be nil.
func NewRiverJobInserter(client *river.Client[pgx.Tx], metrics observability.JobMetrics) *RiverJobInserter {
	return &RiverJobInserter{client: client, metrics: metrics}
}

// InsertRecompute implements JobInserter.
func (r *RiverJobInserter) InsertRecompute(ctx context.Context, args SimilarityRecomputeArgs) (*models.EnqueueRunResponse, error) {
	if args.Scope == "" {
		args.Scope = ScopeFull
	}

	res, err := r.client.Insert(ctx, args, nil)
	if err != nil {
		return nil, fmt.Errorf("insert recompute job: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordRecomputeEnqueued(ctx, res.UniqueSkippedAsDuplicate)
	}

	slog.InfoContext(ctx, "recompute job enqueued",
		"job_id", res.Job.ID, "duplicate", res.UniqueSkippedAsDuplicate, "requested_by", args.RequestedBy)

	return &models.EnqueueRunResponse{JobID: res.Job.ID, Duplicate: res.UniqueSkippedAsDuplicate}, nil
}

var _ JobInserter = (*RiverJobInserter)(nil)
