package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records similarity run metrics.
type PipelineMetrics interface {
	RecordStageDuration(ctx context.Context, stage string, duration time.Duration)
	RecordRun(ctx context.Context, status string, duration time.Duration)
	RecordRunSize(ctx context.Context, tracks, edges int)
}

type pipelineMetrics struct {
	runs          metric.Int64Counter
	runDuration   metric.Float64Histogram
	stageDuration metric.Float64Histogram
	tracks        metric.Int64Gauge
	edges         metric.Int64Gauge
}

// NewPipelineMetrics creates PipelineMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewPipelineMetrics(meter metric.Meter) (PipelineMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	runs, err := meter.Int64Counter(
		MetricNameSimilarityRuns,
		metric.WithDescription("Total similarity runs by final status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity runs counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		MetricNameSimilarityRunDuration,
		metric.WithDescription("Similarity run duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity run duration histogram: %w", err)
	}

	stageDuration, err := meter.Float64Histogram(
		MetricNameSimilarityStageDuration,
		metric.WithDescription("Similarity pipeline stage duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity stage duration histogram: %w", err)
	}

	tracks, err := meter.Int64Gauge(
		MetricNameSimilarityTracks,
		metric.WithDescription("Tracks in the last successful similarity run"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity tracks gauge: %w", err)
	}

	edges, err := meter.Int64Gauge(
		MetricNameSimilarityEdges,
		metric.WithDescription("Edges written by the last successful similarity run"),
	)
	if err != nil {
		return nil, fmt.Errorf("create similarity edges gauge: %w", err)
	}

	return &pipelineMetrics{
		runs:          runs,
		runDuration:   runDuration,
		stageDuration: stageDuration,
		tracks:        tracks,
		edges:         edges,
	}, nil
}

func (p *pipelineMetrics) RecordStageDuration(ctx context.Context, stage string, duration time.Duration) {
	stage = NormalizeReason(stage, AllowedStages)
	p.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrStage, stage)))
}

func (p *pipelineMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	status = NormalizeReason(status, AllowedRunStatuses)
	attrs := metric.WithAttributes(attribute.String(AttrStatus, status))
	p.runs.Add(ctx, 1, attrs)
	p.runDuration.Record(ctx, duration.Seconds(), attrs)
}

func (p *pipelineMetrics) RecordRunSize(ctx context.Context, tracks, edges int) {
	p.tracks.Record(ctx, int64(tracks))
	p.edges.Record(ctx, int64(edges))
}
