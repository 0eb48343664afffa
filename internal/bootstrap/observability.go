package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/internal/observability"
)

// Observability holds the providers installed for one process. Every field is nil when the
// matching exporter is disabled.
type Observability struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	Metrics        *observability.Metrics
	// MetricsHandler serves /metrics when OTEL_METRICS_EXPORTER=prometheus.
	MetricsHandler http.Handler
}

// SetupObservability creates meter and tracer providers for the configured exporters, installs them
// globally and builds the metric collectors.
func SetupObservability(cfg *config.Config, serviceName string) (*Observability, error) {
	obs := &Observability{}

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		mp, handler, err := observability.NewMeterProvider(cfg, serviceName)
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}

		if mp != nil {
			metrics, err := observability.NewMetrics(mp.Meter("github.com/soundgraph/hub"))
			if err != nil {
				if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
					slog.Error("shutdown meter provider after metrics error", "error", err2)
				}

				return nil, fmt.Errorf("create metrics: %w", err)
			}

			otel.SetMeterProvider(mp)

			obs.MeterProvider, obs.Metrics, obs.MetricsHandler = mp, metrics, handler
		}
	}

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")

		return obs, nil
	}

	tp, err := observability.NewTracerProvider(cfg, serviceName)
	if err != nil {
		if err2 := obs.Shutdown(context.Background()); err2 != nil {
			slog.Error("shutdown meter provider after tracer provider error", "error", err2)
		}

		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tp != nil {
		otel.SetTracerProvider(tp)
		obs.TracerProvider = tp
	}

	return obs, nil
}

// Shutdown flushes and stops the tracer then the meter provider. Logs secondary errors, returns the first.
func (o *Observability) Shutdown(ctx context.Context) error {
	var first error

	if o.TracerProvider != nil {
		if err := observability.ShutdownTracerProvider(ctx, o.TracerProvider); err != nil {
			first = err
		}
	}

	if o.MeterProvider != nil {
		if err := observability.ShutdownMeterProvider(ctx, o.MeterProvider); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// PipelineMetrics returns the pipeline collector or nil when metrics are disabled.
func (o *Observability) PipelineMetrics() observability.PipelineMetrics {
	if o == nil || o.Metrics == nil {
		return nil
	}

	return o.Metrics.Pipeline
}

// EmbeddingMetrics returns the embedding collector or nil when metrics are disabled.
func (o *Observability) EmbeddingMetrics() observability.EmbeddingMetrics {
	if o == nil || o.Metrics == nil {
		return nil
	}

	return o.Metrics.Embeddings
}
