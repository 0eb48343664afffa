// Package similarity composes per-track vectors and ranks every track's nearest neighbors by cosine similarity.
package similarity

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
	"github.com/soundgraph/hub/pkg/embeddings"
)

// SelfSentinel is written to a row's own diagonal entry before ranking. It is below any valid cosine.
const SelfSentinel = -2.0

// ScoreResolution is the grid scores are rounded to. Rounding absorbs float noise from vector
// scaling, so scores that are mathematically equal compare equal and the lower index wins the tie.
const ScoreResolution = 1.0 / scoreScale

// scoreScale is exact in float64, so rounding divides by it rather than multiplying by ScoreResolution.
const scoreScale = 1e12

// DefaultK is the number of neighbors kept per track when nothing else is configured.
const DefaultK = 5

// ctxCheckEvery is how many rows are ranked between context checks.
const ctxCheckEvery = 256

// Neighbor is one ranked candidate: the row index of the other track and its cosine similarity.
type Neighbor struct {
	Index int
	Score float64
}

// NeighborFinder returns, for every row of vectors, at most k other rows ordered by descending
// cosine similarity with ties broken by lower row index. A row never appears in its own list.
// Implementations may trade exactness for scale but must keep this contract.
type NeighborFinder interface {
	FindNeighbors(ctx context.Context, vectors [][]float64, k int) ([][]Neighbor, error)
}

// NewFinder returns the finder for a strategy name (models.StrategyExact or models.StrategyBlocked).
func NewFinder(strategy string, blockSize int) (NeighborFinder, error) {
	switch strategy {
	case models.StrategyExact, "":
		return ExactFinder{}, nil
	case models.StrategyBlocked:
		return NewBlockedFinder(blockSize), nil
	default:
		return nil, huberrors.NewValidationError("strategy", fmt.Sprintf("unknown similarity strategy %q", strategy))
	}
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either vector has zero length or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA := embeddings.Norm(a)
	normB := embeddings.Norm(b)

	if normA == 0 || normB == 0 {
		return 0
	}

	return clamp(embeddings.Dot(a, b) / (normA * normB))
}

// unitRows validates vectors and packs them into an n×d matrix whose rows have unit length.
// Zero rows stay zero so every cosine against them is 0. Non-finite entries count as 0.
func unitRows(vectors [][]float64) (*mat.Dense, error) {
	n := len(vectors)
	d := len(vectors[0])

	if d == 0 {
		return nil, huberrors.NewValidationError("vectors", "composed vectors have zero dimension")
	}

	data := make([]float64, n*d)

	for i, v := range vectors {
		if len(v) != d {
			return nil, huberrors.NewValidationError("vectors",
				fmt.Sprintf("row %d has dimension %d, want %d", i, len(v), d))
		}

		row := data[i*d : (i+1)*d]
		for j, x := range v {
			if !math.IsNaN(x) && !math.IsInf(x, 0) {
				row[j] = x
			}
		}

		embeddings.NormalizeL2(row)
	}

	return mat.NewDense(n, d, data), nil
}

func validateK(k int) error {
	if k <= 0 {
		return huberrors.NewValidationError("k", fmt.Sprintf("k must be positive, got %d", k))
	}

	return nil
}

// clamp maps NaN to 0, bounds score to [-1, 1] and rounds it to ScoreResolution.
func clamp(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return math.Round(score*scoreScale) / scoreScale
	}
}
