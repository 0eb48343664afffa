package embeddings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	compatibleTimeout  = 60 * time.Second
	compatibleRetryMax = 3
)

// CompatibleClient calls any server exposing the OpenAI embeddings API (for example a local
// sentence-transformers host serving all-MiniLM-L6-v2). Transient HTTP failures are retried.
type CompatibleClient struct {
	client     *goopenai.Client
	model      string
	dimensions int
}

// CompatibleOption configures the CompatibleClient.
type CompatibleOption func(*CompatibleClient)

// WithCompatibleDimensions requests a specific output dimension (0 = server default).
func WithCompatibleDimensions(dim int) CompatibleOption {
	return func(c *CompatibleClient) {
		c.dimensions = dim
	}
}

// NewCompatibleClient creates a client for the server at baseURL (e.g. http://localhost:8000/v1).
// apiKey may be empty for servers without auth.
func NewCompatibleClient(baseURL, apiKey, model string, opts ...CompatibleOption) *CompatibleClient {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = compatibleTimeout
	retryClient.RetryMax = compatibleRetryMax
	retryClient.Logger = nil // errors surface through the batcher, which logs them

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	cfg.HTTPClient = retryClient.StandardClient()

	c := &CompatibleClient{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetEmbeddings implements Client. Vectors are reordered by the index the server reports.
func (c *CompatibleClient) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      texts,
		Model:      goopenai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("compatible embedding: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		if d.Index != i {
			return nil, fmt.Errorf("compatible embedding: missing index %d in response", i)
		}

		out[i] = d.Embedding
	}

	return out, nil
}

var _ Client = (*CompatibleClient)(nil)
