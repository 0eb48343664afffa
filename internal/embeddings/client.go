// Package embeddings turns descriptive track texts into fixed-length vectors through a
// pluggable provider, chunked and rate limited, with an optional persistent cache.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client embeds a batch of texts. The result has one vector per input, in input order,
// and every vector has the same length.
type Client interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Placeholder replaces blank descriptive text so every track still gets a vector.
const Placeholder = "unknown"

var (
	// ErrEmptyBatch is returned when a provider is called with no texts.
	ErrEmptyBatch = errors.New("embeddings: empty batch")
	// ErrCountMismatch is returned when a provider returns a different number of vectors than texts.
	ErrCountMismatch = errors.New("embeddings: vector count mismatch")
	// ErrDimensionMismatch is returned when vectors in one run have different lengths.
	ErrDimensionMismatch = errors.New("embeddings: dimension mismatch")
)

// PrepareText trims text and substitutes Placeholder when nothing is left.
func PrepareText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Placeholder
	}

	return text
}

// checkVectors verifies count and a single non-zero dimension. want <= 0 accepts any dimension.
func checkVectors(vectors [][]float32, count, want int) (int, error) {
	if len(vectors) != count {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vectors), count)
	}

	dim := want
	for i, v := range vectors {
		if dim <= 0 {
			dim = len(v)
		}

		if len(v) == 0 || len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dims, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	return dim, nil
}
