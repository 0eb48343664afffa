package observability

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// JobMetrics records recompute job scheduling.
type JobMetrics interface {
	RecordRecomputeEnqueued(ctx context.Context, duplicate bool)
	SetRiverQueueDepth(depth int)
}

type jobMetrics struct {
	enqueued        metric.Int64Counter
	riverQueueDepth atomic.Int64
}

// NewJobMetrics creates JobMetrics and registers the queue depth gauge.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewJobMetrics(meter metric.Meter) (JobMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	enqueued, err := meter.Int64Counter(
		MetricNameRecomputeEnqueued,
		metric.WithDescription("Recompute requests by result (enqueued, duplicate)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recompute enqueued counter: %w", err)
	}

	jm := &jobMetrics{enqueued: enqueued}

	_, err = meter.Int64ObservableGauge(
		MetricNameRiverQueueDepth,
		metric.WithDescription("Current River similarity queue depth (available/retryable/scheduled)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(jm.riverQueueDepth.Load())

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create river queue depth gauge: %w", err)
	}

	return jm, nil
}

func (j *jobMetrics) RecordRecomputeEnqueued(ctx context.Context, duplicate bool) {
	result := "enqueued"
	if duplicate {
		result = "duplicate"
	}

	j.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}

func (j *jobMetrics) SetRiverQueueDepth(depth int) {
	j.riverQueueDepth.Store(int64(depth))
}
