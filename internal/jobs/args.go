// Package jobs provides the River job that recomputes the similarity edge set.
package jobs

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// QueueSimilarity is the River queue for recompute jobs. It runs with a single worker so at most
// one run writes the edge set at a time.
const QueueSimilarity = "similarity"

// ScopeFull recomputes the whole catalog. It is the only scope today.
const ScopeFull = "full"

// SimilarityRecomputeArgs contains the arguments for a full similarity recompute.
type SimilarityRecomputeArgs struct {
	// Scope is part of the uniqueness key; RequestedBy is not, so two callers collapse into one job.
	Scope       string `json:"scope"        river:"unique"`
	RequestedBy string `json:"requested_by"`
}

// Kind returns the job type identifier for River
func (SimilarityRecomputeArgs) Kind() string { return "similarity_recompute" }

// InsertOpts pins the job to the similarity queue, disables retries and deduplicates
// against any recompute that has not finished yet.
func (SimilarityRecomputeArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueSimilarity,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			// JobStatePending is required by River when using ByState
			ByState: []rivertype.JobState{
				rivertype.JobStatePending,
				rivertype.JobStateAvailable,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
