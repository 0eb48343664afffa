package similarity

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const defaultBlockSize = 512

// BlockedFinder computes similarities one block of rows at a time (block × N), so peak memory is
// O(BlockSize·N) instead of O(N²). Rankings match ExactFinder up to floating point rounding.
type BlockedFinder struct {
	BlockSize int
}

// NewBlockedFinder returns a BlockedFinder; non-positive sizes use the default.
func NewBlockedFinder(blockSize int) BlockedFinder {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	return BlockedFinder{BlockSize: blockSize}
}

// FindNeighbors implements NeighborFinder.
func (f BlockedFinder) FindNeighbors(ctx context.Context, vectors [][]float64, k int) ([][]Neighbor, error) {
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

	blockSize := f.BlockSize
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	_, d := x.Dims()
	out := make([][]Neighbor, n)

	var prod mat.Dense

	for start := 0; start < n; start += blockSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("blocked similarity: %w", err)
		}

		end := min(start+blockSize, n)
		block := x.Slice(start, end, 0, d)

		prod.Reset()
		prod.Mul(block, x.T())

		for r := 0; r < end-start; r++ {
			out[start+r] = selectRow(prod.RawRowView(r), start+r, k)
		}
	}

	return out, nil
}
