package similarity

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

const tolerance = 1e-9

func finders() map[string]NeighborFinder {
	return map[string]NeighborFinder{
		"exact":     ExactFinder{},
		"blocked":   NewBlockedFinder(2),
		"blocked-1": NewBlockedFinder(1),
	}
}

// threeTrackVectors returns unit vectors with cos(A,B)=0.9, cos(A,C)=0.1, cos(B,C)=0.2.
func threeTrackVectors() [][]float64 {
	b2 := math.Sqrt(1 - 0.9*0.9)
	c2 := (0.2 - 0.9*0.1) / b2
	c3 := math.Sqrt(1 - 0.1*0.1 - c2*c2)

	return [][]float64{
		{1, 0, 0},
		{0.9, b2, 0},
		{0.1, c2, c3},
	}
}

func randomVectors(n, d int, seed int64) [][]float64 {
	r := rand.New(rand.NewSource(seed))

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, d)
		for j := range out[i] {
			out[i][j] = r.NormFloat64()
		}
	}

	return out
}

func scoreOf(list []Neighbor, idx int) (float64, bool) {
	for _, n := range list {
		if n.Index == idx {
			return n.Score, true
		}
	}

	return 0, false
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "scaled", a: []float64{1, 1}, b: []float64{5, 5}, want: 1},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), tolerance)
		})
	}
}

func TestFindNeighbors_ThreeTrackScenario(t *testing.T) {
	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			got, err := finder.FindNeighbors(context.Background(), threeTrackVectors(), 1)
			require.NoError(t, err)
			require.Len(t, got, 3)

			require.Len(t, got[0], 1)
			assert.Equal(t, 1, got[0][0].Index)
			assert.InDelta(t, 0.9, got[0][0].Score, tolerance)

			require.Len(t, got[1], 1)
			assert.Equal(t, 0, got[1][0].Index)
			assert.InDelta(t, 0.9, got[1][0].Score, tolerance)

			require.Len(t, got[2], 1)
			assert.Equal(t, 1, got[2][0].Index)
			assert.InDelta(t, 0.2, got[2][0].Score, tolerance)
		})
	}
}

func TestFindNeighbors_IdenticalVectors(t *testing.T) {
	vectors := [][]float64{
		{0.3, -1.2, 4, 0.5},
		{1, 1, 1, 1},
		{0.3, -1.2, 4, 0.5},
		{-2, 0.1, 0, 3},
	}

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			got, err := finder.FindNeighbors(context.Background(), vectors, 2)
			require.NoError(t, err)

			assert.Equal(t, 2, got[0][0].Index)
			assert.InDelta(t, 1.0, got[0][0].Score, tolerance)
			assert.Equal(t, 0, got[2][0].Index)
			assert.InDelta(t, 1.0, got[2][0].Score, tolerance)
		})
	}
}

func TestFindNeighbors_Symmetry(t *testing.T) {
	vectors := randomVectors(12, 6, 7)
	n := len(vectors)

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			got, err := finder.FindNeighbors(context.Background(), vectors, n-1)
			require.NoError(t, err)

			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}

					ij, ok := scoreOf(got[i], j)
					require.True(t, ok)

					ji, ok := scoreOf(got[j], i)
					require.True(t, ok)

					assert.InDelta(t, ij, ji, tolerance)
				}
			}
		})
	}
}

func TestFindNeighbors_SelfExclusionAndOrdering(t *testing.T) {
	vectors := randomVectors(30, 10, 42)

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			got, err := finder.FindNeighbors(context.Background(), vectors, 5)
			require.NoError(t, err)
			require.Len(t, got, len(vectors))

			for i, list := range got {
				assert.LessOrEqual(t, len(list), 5)

				for r, n := range list {
					assert.NotEqual(t, i, n.Index, "row %d lists itself", i)
					assert.GreaterOrEqual(t, n.Score, -1.0)
					assert.LessOrEqual(t, n.Score, 1.0)

					if r > 0 {
						assert.GreaterOrEqual(t, list[r-1].Score, n.Score)
					}
				}
			}
		})
	}
}

func TestFindNeighbors_TiesBreakByLowerIndex(t *testing.T) {
	vectors := [][]float64{{1, 0}, {1, 0}, {1, 0}, {1, 0}, {1, 0}}

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			first, err := finder.FindNeighbors(context.Background(), vectors, 3)
			require.NoError(t, err)

			second, err := finder.FindNeighbors(context.Background(), vectors, 3)
			require.NoError(t, err)

			assert.Equal(t, first, second)

			indexes := func(list []Neighbor) []int {
				out := make([]int, len(list))
				for i, n := range list {
					out[i] = n.Index
				}

				return out
			}

			assert.Equal(t, []int{1, 2, 3}, indexes(first[0]))
			assert.Equal(t, []int{0, 2, 3}, indexes(first[1]))
			assert.Equal(t, []int{0, 1, 2}, indexes(first[4]))
		})
	}
}

func TestFindNeighbors_GracefulK(t *testing.T) {
	tests := []struct {
		name string
		rows int
		want int
	}{
		{name: "single track", rows: 1, want: 0},
		{name: "two tracks", rows: 2, want: 1},
		{name: "four tracks", rows: 4, want: 3},
	}

	for name, finder := range finders() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := finder.FindNeighbors(context.Background(), randomVectors(tt.rows, 3, 1), 5)
				require.NoError(t, err)
				require.Len(t, got, tt.rows)

				for _, list := range got {
					assert.Len(t, list, tt.want)
				}
			})
		}
	}
}

func TestFindNeighbors_ZeroRowsStayFinite(t *testing.T) {
	vectors := [][]float64{
		{0, 0, 0},
		{1, 2, 3},
		{math.NaN(), 1, math.Inf(1)},
		{3, 2, 1},
	}

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			got, err := finder.FindNeighbors(context.Background(), vectors, 3)
			require.NoError(t, err)

			for _, list := range got {
				for _, n := range list {
					assert.False(t, math.IsNaN(n.Score))
					assert.False(t, math.IsInf(n.Score, 0))
				}
			}

			for _, n := range got[0] {
				assert.Equal(t, 0.0, n.Score)
			}
		})
	}

	sim, err := ExactFinder{}.Matrix(vectors)
	require.NoError(t, err)

	n, _ := sim.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.False(t, math.IsNaN(sim.At(i, j)))
		}
	}
}

func TestFindNeighbors_ExactMatchesBlocked(t *testing.T) {
	vectors := randomVectors(57, 16, 2024)

	exact, err := ExactFinder{}.FindNeighbors(context.Background(), vectors, 5)
	require.NoError(t, err)

	for _, size := range []int{1, 4, 10, 57, 100} {
		blocked, err := NewBlockedFinder(size).FindNeighbors(context.Background(), vectors, 5)
		require.NoError(t, err)
		require.Len(t, blocked, len(exact))

		for i := range exact {
			require.Len(t, blocked[i], len(exact[i]))

			for r := range exact[i] {
				assert.Equal(t, exact[i][r].Index, blocked[i][r].Index, "block %d row %d rank %d", size, i, r)
				assert.InDelta(t, exact[i][r].Score, blocked[i][r].Score, 2*ScoreResolution)
			}
		}
	}
}

func TestFindNeighbors_ScaledCopiesTieByIndex(t *testing.T) {
	a := []float64{0.3, -1.7, 2.9, 0.11, 5.3}
	scaled := func(f float64) []float64 {
		out := make([]float64, len(a))
		for i, x := range a {
			out[i] = x * f
		}

		return out
	}

	vectors := [][]float64{a, scaled(3), scaled(7), scaled(2), scaled(11)}

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			got, err := finder.FindNeighbors(context.Background(), vectors, 4)
			require.NoError(t, err)

			indexes := make([]int, len(got[0]))
			for r, n := range got[0] {
				indexes[r] = n.Index
				assert.Equal(t, 1.0, n.Score)
			}

			assert.Equal(t, []int{1, 2, 3, 4}, indexes)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(0.9999999999999998))
	assert.Equal(t, 1.0, clamp(1.0000000000000002))
	assert.Equal(t, -1.0, clamp(-3))
	assert.Equal(t, 0.0, clamp(math.NaN()))
	assert.InDelta(t, 0.25, clamp(0.25), 1e-15)
}

func TestFindNeighbors_Errors(t *testing.T) {
	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			_, err := finder.FindNeighbors(context.Background(), randomVectors(3, 2, 1), 0)
			assert.ErrorIs(t, err, huberrors.ErrValidation)

			_, err = finder.FindNeighbors(context.Background(), [][]float64{{1, 2}, {1}}, 1)
			assert.ErrorIs(t, err, huberrors.ErrValidation)

			_, err = finder.FindNeighbors(context.Background(), [][]float64{{}, {}}, 1)
			assert.ErrorIs(t, err, huberrors.ErrValidation)

			got, err := finder.FindNeighbors(context.Background(), nil, 5)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestFindNeighbors_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, finder := range finders() {
		t.Run(name, func(t *testing.T) {
			_, err := finder.FindNeighbors(ctx, randomVectors(5, 3, 9), 2)
			require.Error(t, err)
			assert.True(t, errors.Is(err, context.Canceled))
		})
	}
}

func TestNewFinder(t *testing.T) {
	f, err := NewFinder(models.StrategyExact, 0)
	require.NoError(t, err)
	assert.IsType(t, ExactFinder{}, f)

	f, err = NewFinder(models.StrategyBlocked, 64)
	require.NoError(t, err)
	assert.Equal(t, BlockedFinder{BlockSize: 64}, f)

	f, err = NewFinder(models.StrategyBlocked, 0)
	require.NoError(t, err)
	assert.Equal(t, BlockedFinder{BlockSize: defaultBlockSize}, f)

	_, err = NewFinder("annoy", 0)
	assert.ErrorIs(t, err, huberrors.ErrValidation)
}
