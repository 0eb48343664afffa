// Package googleai provides a thin wrapper around the Google Gen AI SDK for batch embeddings (Gemini API).
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/genai"
)

var (
	// ErrEmptyInput is returned when GetEmbeddings is called with no texts.
	ErrEmptyInput = errors.New("googleai: no input texts")
	// ErrInvalidDims is returned when dimensions is out of range.
	ErrInvalidDims = errors.New("googleai: embedding dimensions out of range")
	// ErrCountMismatch is returned when the response holds a different number of embeddings than inputs.
	ErrCountMismatch = errors.New("googleai: embedding count mismatch")
	// ErrDimensionMismatch is returned when an embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

const defaultModel = "gemini-embedding-001"

// Client calls the Gemini embeddings API via the Google Gen AI SDK.
type Client struct {
	client     *genai.Client
	model      string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets OutputDimensionality. 0 keeps the model's native size.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name (e.g. gemini-embedding-001). Empty uses default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a Gemini embeddings client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client := &Client{
		client: genaiClient,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.dimensions < 0 || client.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	return client, nil
}

// GetEmbeddings embeds texts in one EmbedContent call, one content per text.
// The API returns embeddings in request order.
func (c *Client) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{}
	if c.dimensions > 0 {
		//nolint:gosec // G115: bounded by math.MaxInt32 in NewClient
		dim := int32(c.dimensions)
		cfg.OutputDimensionality = &dim
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))

	for i, e := range resp.Embeddings {
		if e == nil || (c.dimensions > 0 && len(e.Values) != c.dimensions) {
			got := 0
			if e != nil {
				got = len(e.Values)
			}

			return nil, fmt.Errorf("%w: embedding %d has %d dims, want %d", ErrDimensionMismatch, i, got, c.dimensions)
		}

		out[i] = append([]float32(nil), e.Values...)
	}

	return out, nil
}
