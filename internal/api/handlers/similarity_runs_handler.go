package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/soundgraph/hub/internal/api/response"
	"github.com/soundgraph/hub/internal/api/validation"
	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/jobs"
	"github.com/soundgraph/hub/internal/models"
)

// RunsReader returns the run that produced the current edge set.
type RunsReader interface {
	LatestRun(ctx context.Context) (*models.SimilarityRun, error)
}

// SimilarityRunsHandler handles recompute requests and run metadata.
type SimilarityRunsHandler struct {
	inserter jobs.JobInserter
	runs     RunsReader
}

// NewSimilarityRunsHandler creates a new similarity runs handler.
func NewSimilarityRunsHandler(inserter jobs.JobInserter, runs RunsReader) *SimilarityRunsHandler {
	return &SimilarityRunsHandler{inserter: inserter, runs: runs}
}

// Enqueue handles POST /v1/similarity/runs. The body is optional. Responds 202 with the job id;
// when a recompute is already queued or running the existing job is returned with duplicate=true.
func (h *SimilarityRunsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req models.EnqueueRunRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(r.Context(), "Invalid request body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.inserter.InsertRecompute(r.Context(), jobs.SimilarityRecomputeArgs{
		Scope:       jobs.ScopeFull,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to enqueue recompute", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusAccepted, result)
}

// Latest handles GET /v1/similarity/runs/latest.
func (h *SimilarityRunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			response.RespondNotFound(w, "No similarity run has completed")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to get latest run", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, run)
}
