package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/soundgraph/hub/internal/models"
)

// Recomputer runs one full similarity recompute.
type Recomputer interface {
	Run(ctx context.Context) (*models.SimilarityRun, error)
}

// CachePurger drops cached reads of the edge set.
type CachePurger interface {
	Purge()
}

// RecomputeWorkerDeps holds the dependencies for the recompute worker. Purger may be nil.
type RecomputeWorkerDeps struct {
	Pipeline Recomputer
	Purger   CachePurger
	// Timeout bounds one run; zero uses River's default job timeout.
	Timeout time.Duration
}

// RecomputeWorker processes similarity recompute jobs.
type RecomputeWorker struct {
	river.WorkerDefaults[SimilarityRecomputeArgs]
	deps RecomputeWorkerDeps
}

// NewRecomputeWorker creates a new recompute worker with the given dependencies.
func NewRecomputeWorker(deps RecomputeWorkerDeps) *RecomputeWorker {
	return &RecomputeWorker{deps: deps}
}

// Timeout overrides River's default job timeout; a full recompute can take much longer than a minute.
func (w *RecomputeWorker) Timeout(*river.Job[SimilarityRecomputeArgs]) time.Duration {
	return w.deps.Timeout
}

// Work runs the pipeline and, on success, purges cached lookups so readers see the new edge set.
func (w *RecomputeWorker) Work(ctx context.Context, job *river.Job[SimilarityRecomputeArgs]) error {
	slog.InfoContext(ctx, "processing recompute job",
		"job_id", job.ID,
		"scope", job.Args.Scope,
		"requested_by", job.Args.RequestedBy,
	)

	run, err := w.deps.Pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if w.deps.Purger != nil {
		w.deps.Purger.Purge()
	}

	slog.InfoContext(ctx, "recompute job completed",
		"job_id", job.ID,
		"run_id", run.ID,
		"edges", run.EdgeCount,
	)

	return nil
}
