package models

import (
	"time"

	"github.com/google/uuid"
)

// Strategy names for the neighbor search backend.
const (
	StrategyExact   = "exact"
	StrategyBlocked = "blocked"
)

// SimilarityEdge is one ranked neighbor of a source track.
// SourceID never equals TargetID. Rank is 1-based within the source.
type SimilarityEdge struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// SimilarityRun records one full recompute of the edge set.
type SimilarityRun struct {
	ID             uuid.UUID `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TrackCount     int       `json:"track_count"`
	EdgeCount      int       `json:"edge_count"`
	K              int       `json:"k"`
	EmbeddingModel string    `json:"embedding_model"`
	Strategy       string    `json:"strategy"`
}

// SimilarTrack is a persisted neighbor joined with the target's display fields.
type SimilarTrack struct {
	TrackID    string   `json:"track_id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Popularity int      `json:"popularity"`
	Score      float64  `json:"score"`
	Rank       int      `json:"rank"`
	// RunID is the run that wrote this edge; the response carries it once.
	RunID uuid.UUID `json:"-"`
}

// Orderings accepted by the similar tracks endpoint.
const (
	SimilarOrderByScore      = "score"
	SimilarOrderByPopularity = "popularity"
)

// SimilarTracksQuery are the query parameters accepted by GET /v1/tracks/{id}/similar.
type SimilarTracksQuery struct {
	Limit   int    `form:"limit"   validate:"omitempty,min=1,max=50"`
	OrderBy string `form:"orderBy" validate:"omitempty,oneof=score popularity"`
}

// SimilarTracksResponse is the response for GET /v1/tracks/{id}/similar.
type SimilarTracksResponse struct {
	TrackID string         `json:"track_id"`
	RunID   *uuid.UUID     `json:"run_id,omitempty"`
	Data    []SimilarTrack `json:"data"`
}

// EnqueueRunRequest is the optional body of POST /v1/similarity/runs.
type EnqueueRunRequest struct {
	RequestedBy string `json:"requested_by" validate:"omitempty,max=128,no_null_bytes"`
}

// EnqueueRunResponse is returned when a recompute job is requested.
type EnqueueRunResponse struct {
	JobID     int64 `json:"job_id"`
	Duplicate bool  `json:"duplicate"`
}
