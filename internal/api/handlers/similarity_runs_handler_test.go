package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/jobs"
	"github.com/soundgraph/hub/internal/models"
)

type mockInserter struct {
	args []jobs.SimilarityRecomputeArgs
	dup  bool
	err  error
}

func (m *mockInserter) InsertRecompute(_ context.Context, args jobs.SimilarityRecomputeArgs) (*models.EnqueueRunResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	m.args = append(m.args, args)

	return &models.EnqueueRunResponse{JobID: 7, Duplicate: m.dup}, nil
}

type mockRuns struct {
	run *models.SimilarityRun
}

func (m *mockRuns) LatestRun(context.Context) (*models.SimilarityRun, error) {
	if m.run == nil {
		return nil, huberrors.NewNotFoundError("similarity_run", "no similarity run has completed")
	}

	return m.run, nil
}

func TestSimilarityRunsHandler_Enqueue(t *testing.T) {
	t.Run("empty body enqueues a full recompute", func(t *testing.T) {
		inserter := &mockInserter{}
		h := NewSimilarityRunsHandler(inserter, &mockRuns{})

		rec := httptest.NewRecorder()
		h.Enqueue(rec, httptest.NewRequest(http.MethodPost, "/v1/similarity/runs", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, inserter.args, 1)
		assert.Equal(t, jobs.ScopeFull, inserter.args[0].Scope)

		var resp models.EnqueueRunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.JobID)
		assert.False(t, resp.Duplicate)
	})

	t.Run("requested_by is forwarded and duplicate reported", func(t *testing.T) {
		inserter := &mockInserter{dup: true}
		h := NewSimilarityRunsHandler(inserter, &mockRuns{})

		rec := httptest.NewRecorder()
		h.Enqueue(rec, httptest.NewRequest(http.MethodPost, "/v1/similarity/runs", strings.NewReader(`{"requested_by":"ops"}`)))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "ops", inserter.args[0].RequestedBy)
		assert.Contains(t, rec.Body.String(), `"duplicate":true`)
	})

	t.Run("unknown field returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSimilarityRunsHandler(&mockInserter{}, &mockRuns{}).
			Enqueue(rec, httptest.NewRequest(http.MethodPost, "/v1/similarity/runs", strings.NewReader(`{"k":3}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("insert failure returns 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSimilarityRunsHandler(&mockInserter{err: errors.New("db down")}, &mockRuns{}).
			Enqueue(rec, httptest.NewRequest(http.MethodPost, "/v1/similarity/runs", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestSimilarityRunsHandler_Latest(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSimilarityRunsHandler(&mockInserter{}, &mockRuns{}).
		Latest(rec, httptest.NewRequest(http.MethodGet, "/v1/similarity/runs/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := uuid.Must(uuid.NewV7())
	rec = httptest.NewRecorder()
	NewSimilarityRunsHandler(&mockInserter{}, &mockRuns{run: &models.SimilarityRun{ID: id, EdgeCount: 12}}).
		Latest(rec, httptest.NewRequest(http.MethodGet, "/v1/similarity/runs/latest", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var run models.SimilarityRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 12, run.EdgeCount)
}
