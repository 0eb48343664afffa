package embeddings

import (
	"context"
	"crypto/sha256"

	"github.com/soundgraph/hub/pkg/embeddings"
)

const defaultMockDimensions = 384

// MockClient generates deterministic unit vectors from a hash of each text.
// Identical texts always get identical vectors. Used for tests and dry runs without a provider.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock client. Non-positive dimensions use 384 (all-MiniLM-L6-v2 width).
func NewMockClient(dimensions int) *MockClient {
	if dimensions <= 0 {
		dimensions = defaultMockDimensions
	}

	return &MockClient{dimensions: dimensions}
}

// GetEmbeddings implements Client.
func (c *MockClient) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = c.vector(text)
	}

	return out, nil
}

func (c *MockClient) vector(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	v := make([]float32, c.dimensions)

	for i := range v {
		// Hash bytes cycled and mapped to [-1, 1].
		v[i] = float32(hash[i%len(hash)])/127.5 - 1.0
	}

	embeddings.NormalizeL2(v)

	return v
}

var _ Client = (*MockClient)(nil)
