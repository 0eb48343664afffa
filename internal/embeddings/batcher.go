package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/observability"
)

const defaultBatchSize = 256

// BatcherConfig configures a Batcher.
type BatcherConfig struct {
	// Provider labels metrics (openai, google, compatible, mock).
	Provider string
	// BatchSize is the number of texts per provider call (default 256).
	BatchSize int
	// RequestsPerSecond limits provider calls; <= 0 means unlimited.
	RequestsPerSecond float64
	// Dimensions is the expected vector length; 0 accepts whatever the first chunk returns.
	Dimensions int
	// Metrics is optional; nil disables recording.
	Metrics observability.EmbeddingMetrics
}

// Batcher embeds a whole catalog through a Client in provider-sized chunks.
// The catalog is treated as one logical batch: output order matches input order, every
// vector has the same length, and any chunk failure fails the whole call with
// huberrors.ErrEmbeddingUnavailable.
type Batcher struct {
	client     Client
	provider   string
	batchSize  int
	limiter    *rate.Limiter
	dimensions int
	metrics    observability.EmbeddingMetrics
}

// NewBatcher wraps client.
func NewBatcher(client Client, cfg BatcherConfig) *Batcher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Batcher{
		client:     client,
		provider:   cfg.Provider,
		batchSize:  batchSize,
		limiter:    limiter,
		dimensions: cfg.Dimensions,
		metrics:    cfg.Metrics,
	}
}

// GetEmbeddings implements Client. Blank texts are replaced with Placeholder before sending.
func (b *Batcher) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = PrepareText(t)
	}

	out := make([][]float32, 0, len(prepared))
	dim := b.dimensions
	chunks := (len(prepared) + b.batchSize - 1) / b.batchSize

	for start := 0; start < len(prepared); start += b.batchSize {
		end := min(start+b.batchSize, len(prepared))
		chunk := start / b.batchSize

		vectors, err := b.embedChunk(ctx, prepared[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d/%d: %w", huberrors.ErrEmbeddingUnavailable, chunk+1, chunks, err)
		}

		dim, err = checkVectors(vectors, end-start, dim)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d/%d: %w", huberrors.ErrEmbeddingUnavailable, chunk+1, chunks, err)
		}

		out = append(out, vectors...)

		slog.DebugContext(ctx, "embeddings: chunk done",
			"chunk", chunk+1, "chunks", chunks, "texts", end-start, "dimensions", dim)
	}

	return out, nil
}

func (b *Batcher) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	vectors, err := b.client.GetEmbeddings(ctx, texts)

	if b.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}

		b.metrics.RecordRequest(ctx, b.provider, len(texts), time.Since(start), status)
	}

	if err != nil {
		slog.WarnContext(ctx, "embeddings: provider call failed",
			"provider", b.provider, "texts", len(texts), "error", err)

		return nil, err
	}

	return vectors, nil
}

var _ Client = (*Batcher)(nil)
