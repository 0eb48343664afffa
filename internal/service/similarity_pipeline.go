// Package service wires the similarity pipeline stages together and serves the read side of the
// persisted edge set.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/soundgraph/hub/internal/embeddings"
	"github.com/soundgraph/hub/internal/export"
	"github.com/soundgraph/hub/internal/features"
	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/internal/observability"
	"github.com/soundgraph/hub/internal/similarity"
)

// Run outcomes recorded on hub_similarity_runs_total.
const (
	runStatusSuccess   = "success"
	runStatusFailed    = "failed"
	runStatusCancelled = "cancelled"
)

// CatalogLoader returns the catalog snapshot for one run, in a stable order.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]models.Track, error)
}

// SimilarityPipelineParams configures SimilarityPipeline. Metrics may be nil.
type SimilarityPipelineParams struct {
	Catalog        CatalogLoader
	Embedder       embeddings.Client
	Finder         similarity.NeighborFinder
	Sink           export.Sink
	K              int
	Strategy       string
	EmbeddingModel string
	Metrics        observability.PipelineMetrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// SimilarityPipeline runs one full recompute: load, normalize and embed, compose, rank, export.
// Any stage failure aborts the run before the sink is touched.
type SimilarityPipeline struct {
	catalog  CatalogLoader
	embedder embeddings.Client
	finder   similarity.NeighborFinder
	sink     export.Sink
	k        int
	strategy string
	model    string
	metrics  observability.PipelineMetrics
	now      func() time.Time
}

// NewSimilarityPipeline creates a SimilarityPipeline. K <= 0 falls back to similarity.DefaultK.
func NewSimilarityPipeline(p SimilarityPipelineParams) *SimilarityPipeline {
	k := p.K
	if k <= 0 {
		k = similarity.DefaultK
	}

	now := p.Now
	if now == nil {
		now = time.Now
	}

	strategy := p.Strategy
	if strategy == "" {
		strategy = models.StrategyExact
	}

	return &SimilarityPipeline{
		catalog:  p.Catalog,
		embedder: p.Embedder,
		finder:   p.Finder,
		sink:     p.Sink,
		k:        k,
		strategy: strategy,
		model:    p.EmbeddingModel,
		metrics:  p.Metrics,
		now:      now,
	}
}

// Run executes the pipeline once and returns the run that was written.
func (p *SimilarityPipeline) Run(ctx context.Context) (run *models.SimilarityRun, err error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	ctx = observability.WithRunID(ctx, runID.String())
	ctx, span := observability.StartSpan(ctx, observability.SpanSimilarityRun,
		trace.WithAttributes(attribute.String("run.id", runID.String()), attribute.Int("run.k", p.k)))

	started := p.now()

	defer func() {
		observability.EndSpan(span, err)

		if p.metrics != nil {
			p.metrics.RecordRun(ctx, runStatus(err), p.now().Sub(started))
		}
	}()

	slog.InfoContext(ctx, "similarity: run started", "k", p.k, "strategy", p.strategy)

	var tracks []models.Track

	if err := p.stage(ctx, observability.StageLoadCatalog, func(ctx context.Context) error {
		tracks, err = p.catalog.LoadCatalog(ctx)

		return err
	}); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if len(tracks) == 0 {
		return nil, huberrors.NewValidationError("catalog", "catalog is empty; refusing to replace the edge set")
	}

	ids := make([]string, len(tracks))
	texts := make([]string, len(tracks))

	for i, t := range tracks {
		ids[i] = t.ID
		texts[i] = t.Text
	}

	slog.InfoContext(ctx, "similarity: catalog loaded", "tracks", len(tracks))

	var audio [][]float64

	if err := p.stage(ctx, observability.StageNormalize, func(context.Context) error {
		audio, err = features.Normalize(features.AudioMatrix(tracks))

		return err
	}); err != nil {
		return nil, fmt.Errorf("normalize audio features: %w", err)
	}

	var vectors [][]float32

	if err := p.stage(ctx, observability.StageEmbed, func(ctx context.Context) error {
		vectors, err = p.embedder.GetEmbeddings(ctx, texts)

		return err
	}); err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}

	var composed [][]float64

	if err := p.stage(ctx, observability.StageCompose, func(context.Context) error {
		composed, err = similarity.Compose(ids,
			similarity.TextEmbeddings{IDs: ids, Vectors: vectors},
			similarity.AudioVectors{IDs: ids, Vectors: audio},
		)

		return err
	}); err != nil {
		return nil, fmt.Errorf("compose vectors: %w", err)
	}

	slog.InfoContext(ctx, "similarity: vectors composed", "dimensions", len(composed[0]))

	var edges []models.SimilarityEdge

	if err := p.stage(ctx, observability.StageNeighbors, func(ctx context.Context) error {
		neighbors, err := p.finder.FindNeighbors(ctx, composed, p.k)
		if err != nil {
			return err
		}

		edges, err = export.Flatten(ids, neighbors)

		return err
	}); err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}

	slog.InfoContext(ctx, "similarity: neighbors computed", "tracks", len(ids), "edges", len(edges))

	run = &models.SimilarityRun{
		ID:             runID,
		StartedAt:      started,
		TrackCount:     len(tracks),
		EdgeCount:      len(edges),
		K:              p.k,
		EmbeddingModel: p.model,
		Strategy:       p.strategy,
	}

	if err := p.stage(ctx, observability.StageExport, func(ctx context.Context) error {
		run.FinishedAt = p.now()

		return p.sink.ReplaceAll(ctx, run, edges)
	}); err != nil {
		return nil, fmt.Errorf("export edges: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordRunSize(ctx, run.TrackCount, run.EdgeCount)
	}

	slog.InfoContext(ctx, "similarity: run finished",
		"tracks", run.TrackCount, "edges", run.EdgeCount, "duration", run.FinishedAt.Sub(started))

	return run, nil
}

// stage runs fn inside a child span and records its duration.
func (p *SimilarityPipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "similarity."+name)
	start := p.now()

	err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}

	observability.EndSpan(span, err)

	if p.metrics != nil {
		p.metrics.RecordStageDuration(ctx, name, p.now().Sub(start))
	}

	if err != nil {
		slog.ErrorContext(ctx, "similarity: stage failed", "stage", name, "error", err)
	}

	return err
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return runStatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return runStatusCancelled
	default:
		return runStatusFailed
	}
}
