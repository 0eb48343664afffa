package similarity

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ExactFinder materializes the full symmetric N×N cosine matrix and ranks each row.
// O(N²·D) time and O(N²) memory; use BlockedFinder for catalogs where N² floats do not fit.
type ExactFinder struct{}

// FindNeighbors implements NeighborFinder.
func (ExactFinder) FindNeighbors(ctx context.Context, vectors [][]float64, k int) ([][]Neighbor, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}

	n := len(vectors)
	if n == 0 {
		return [][]Neighbor{}, nil
	}

	x, err := unitRows(vectors)
	if err != nil {
		return nil, err
	}

	// X·Xᵀ over unit rows; SymDense keeps (i,j) and (j,i) as the same stored value.
	var sim mat.SymDense
	sim.SymOuterK(1, x)

	out := make([][]Neighbor, n)
	row := make([]float64, n)

	for i := 0; i < n; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("exact similarity: %w", err)
			}
		}

		for j := 0; j < n; j++ {
			row[j] = sim.At(i, j)
		}

		out[i] = selectRow(row, i, k)
	}

	return out, nil
}

// Matrix returns the full cosine similarity matrix with the diagonal left as computed.
// Intended for diagnostics and tests on small catalogs.
func (ExactFinder) Matrix(vectors [][]float64) (*mat.SymDense, error) {
	if len(vectors) == 0 {
		return mat.NewSymDense(0, nil), nil
	}

	x, err := unitRows(vectors)
	if err != nil {
		return nil, err
	}

	var sim mat.SymDense
	sim.SymOuterK(1, x)

	return &sim, nil
}
