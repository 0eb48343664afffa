// Package handlers implements the HTTP handlers of the query API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/soundgraph/hub/internal/api/response"
	"github.com/soundgraph/hub/internal/api/validation"
	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

// TracksService defines the read operations on tracks and their persisted neighbors.
type TracksService interface {
	Get(ctx context.Context, id string) (*models.TrackInfo, error)
	List(ctx context.Context, filters *models.ListTracksFilters) (*models.ListTracksResponse, error)
	Similar(ctx context.Context, trackID string, q *models.SimilarTracksQuery) (*models.SimilarTracksResponse, error)
}

// TracksHandler handles HTTP requests for tracks.
type TracksHandler struct {
	service TracksService
}

// NewTracksHandler creates a new tracks handler.
func NewTracksHandler(service TracksService) *TracksHandler {
	return &TracksHandler{service: service}
}

// List handles GET /v1/tracks.
func (h *TracksHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListTracksFilters{}

	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list tracks", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Get handles GET /v1/tracks/{id}.
func (h *TracksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateTrackID(id); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	track, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			response.RespondNotFound(w, "Track not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to get track", "method", r.Method, "path", r.URL.Path, "id", id, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, track)
}

// Similar handles GET /v1/tracks/{id}/similar.
func (h *TracksHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validation.ValidateTrackID(id); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	query := &models.SimilarTracksQuery{}
	if err := validation.ValidateAndDecodeQueryParams(r, query); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.Similar(r.Context(), id, query)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			response.RespondNotFound(w, "Track not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to list similar tracks", "method", r.Method, "path", r.URL.Path, "id", id, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
