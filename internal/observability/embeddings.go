package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EmbeddingMetrics records embedding provider calls and cache effectiveness.
// Methods accept ctx for future exemplar support.
type EmbeddingMetrics interface {
	RecordRequest(ctx context.Context, provider string, texts int, duration time.Duration, status string)
	RecordCacheLookup(ctx context.Context, hits, misses int)
}

type embeddingMetrics struct {
	requests     metric.Int64Counter
	texts        metric.Int64Counter
	duration     metric.Float64Histogram
	cacheLookups metric.Int64Counter
}

// NewEmbeddingMetrics creates EmbeddingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameEmbeddingRequests,
		metric.WithDescription("Total embedding provider requests (one per chunk) by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding requests counter: %w", err)
	}

	texts, err := meter.Int64Counter(
		MetricNameEmbeddingTexts,
		metric.WithDescription("Total texts sent to the embedding provider"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding texts counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding provider request duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding duration histogram: %w", err)
	}

	cacheLookups, err := meter.Int64Counter(
		MetricNameEmbeddingCacheLookups,
		metric.WithDescription("Embedding cache lookups by result (hit, miss)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache lookups counter: %w", err)
	}

	return &embeddingMetrics{
		requests:     requests,
		texts:        texts,
		duration:     duration,
		cacheLookups: cacheLookups,
	}, nil
}

func (e *embeddingMetrics) RecordRequest(
	ctx context.Context, provider string, texts int, duration time.Duration, status string,
) {
	attrs := metric.WithAttributes(
		attribute.String(AttrProvider, NormalizeReason(provider, AllowedProviders)),
		attribute.String(AttrStatus, NormalizeReason(status, AllowedEmbeddingStatuses)),
	)
	e.requests.Add(ctx, 1, attrs)
	e.texts.Add(ctx, int64(texts), attrs)
	e.duration.Record(ctx, duration.Seconds(), attrs)
}

func (e *embeddingMetrics) RecordCacheLookup(ctx context.Context, hits, misses int) {
	e.cacheLookups.Add(ctx, int64(hits), metric.WithAttributes(attribute.String(AttrResult, "hit")))
	e.cacheLookups.Add(ctx, int64(misses), metric.WithAttributes(attribute.String(AttrResult, "miss")))
}
