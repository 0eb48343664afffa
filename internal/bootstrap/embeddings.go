package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundgraph/hub/internal/config"
	"github.com/soundgraph/hub/internal/embeddings"
	"github.com/soundgraph/hub/internal/googleai"
	"github.com/soundgraph/hub/internal/observability"
	"github.com/soundgraph/hub/internal/openai"
)

// Embedding providers accepted in EMBEDDING_PROVIDER.
const (
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
	ProviderCompatible = "compatible"
	ProviderMock       = "mock"
)

const (
	defaultOpenAIModel = "text-embedding-3-small"
	defaultGoogleModel = "gemini-embedding-001"
	defaultMockModel   = "mock"
)

var (
	errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")
	errProviderRequired             = errors.New("EMBEDDING_PROVIDER is required (openai, google, compatible or mock)")
	errBaseURLRequired              = errors.New("EMBEDDING_BASE_URL is required for the compatible provider")
	errModelRequired                = errors.New("EMBEDDING_MODEL is required for the compatible provider")
)

// EmbeddingStack is the composed embedding client and the model name recorded on runs and cache rows.
type EmbeddingStack struct {
	Client   embeddings.Client
	Provider string
	Model    string
}

// NewEmbeddingStack builds provider -> Batcher -> optional CachingClient. store may be nil, which
// disables the cache regardless of EMBEDDING_CACHE_ENABLED.
func NewEmbeddingStack(
	ctx context.Context, cfg *config.Config, store embeddings.CacheStore, metrics observability.EmbeddingMetrics,
) (*EmbeddingStack, error) {
	provider, model, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var client embeddings.Client = embeddings.NewBatcher(provider, embeddings.BatcherConfig{
		Provider:          cfg.EmbeddingProvider,
		BatchSize:         cfg.EmbeddingBatchSize,
		RequestsPerSecond: cfg.EmbeddingRequestsPerSecond,
		Dimensions:        cfg.EmbeddingDimensions,
		Metrics:           metrics,
	})

	if cfg.EmbeddingCacheEnabled {
		if store == nil {
			slog.Warn("embedding cache requested but no database is available; cache disabled")
		} else {
			client = embeddings.NewCachingClient(client, store, model, cfg.EmbeddingDimensions, metrics)
		}
	}

	slog.Info("embeddings enabled", "provider", cfg.EmbeddingProvider, "model", model,
		"batch_size", cfg.EmbeddingBatchSize, "cache", cfg.EmbeddingCacheEnabled && store != nil)

	return &EmbeddingStack{Client: client, Provider: cfg.EmbeddingProvider, Model: model}, nil
}

func newProvider(ctx context.Context, cfg *config.Config) (embeddings.Client, string, error) {
	model := cfg.EmbeddingModel

	switch cfg.EmbeddingProvider {
	case ProviderOpenAI:
		if model == "" {
			model = defaultOpenAIModel
		}

		opts := []openai.ClientOption{openai.WithModel(model), openai.WithDimensions(cfg.EmbeddingDimensions)}
		if cfg.EmbeddingBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.EmbeddingBaseURL))
		}

		return openai.NewClient(cfg.EmbeddingProviderAPIKey, opts...), model, nil
	case ProviderGoogle:
		if model == "" {
			model = defaultGoogleModel
		}

		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(model), googleai.WithDimensions(cfg.EmbeddingDimensions))
		if err != nil {
			return nil, "", fmt.Errorf("create google embedding client: %w", err)
		}

		return client, model, nil
	case ProviderCompatible:
		if cfg.EmbeddingBaseURL == "" {
			return nil, "", errBaseURLRequired
		}

		if model == "" {
			return nil, "", errModelRequired
		}

		return embeddings.NewCompatibleClient(cfg.EmbeddingBaseURL, cfg.EmbeddingProviderAPIKey, model,
			embeddings.WithCompatibleDimensions(cfg.EmbeddingDimensions)), model, nil
	case ProviderMock:
		if model == "" {
			model = defaultMockModel
		}

		return embeddings.NewMockClient(cfg.EmbeddingDimensions), model, nil
	case "":
		return nil, "", errProviderRequired
	default:
		return nil, "", fmt.Errorf("%w: %q", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}
