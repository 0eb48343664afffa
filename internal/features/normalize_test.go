package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

func TestNormalize_ZeroMeanUnitVariance(t *testing.T) {
	m := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	}

	out, err := Normalize(m)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// population std of {1,2,3} is sqrt(2/3)
	std := math.Sqrt(2.0 / 3.0)
	const tol = 1e-6

	assert.InDelta(t, -1/std, out[0][0], tol)
	assert.InDelta(t, 0, out[1][0], tol)
	assert.InDelta(t, 1/std, out[2][0], tol)

	// scale-invariant: second column is 10x the first
	for i := range out {
		assert.InDelta(t, out[i][0], out[i][1], tol)
	}

	// input untouched
	assert.Equal(t, []float64{1, 10}, m[0])
}

func TestNormalize_ConstantColumnCollapsesToZero(t *testing.T) {
	m := make([][]float64, 50)
	for i := range m {
		m[i] = []float64{float64(i) / 50, 120}
	}

	out, err := Normalize(m)
	require.NoError(t, err)

	for i := range out {
		for j := range out[i] {
			assert.False(t, math.IsNaN(out[i][j]) || math.IsInf(out[i][j], 0), "row %d col %d not finite", i, j)
		}

		assert.InDelta(t, 0, out[i][1], 1e-12, "tempo must collapse to ~0")
	}
}

func TestNormalize_TinySpreadIsKept(t *testing.T) {
	m := [][]float64{{1}, {1 + 1e-10}}

	out, err := Normalize(m)
	require.NoError(t, err)

	// std is 5e-11: values become ±5e-11/(5e-11+Epsilon), not 0
	want := 5e-11 / (5e-11 + Epsilon)
	assert.InDelta(t, -want, out[0][0], 1e-3)
	assert.InDelta(t, want, out[1][0], 1e-3)
}

func TestNormalize_OverflowingColumnCollapses(t *testing.T) {
	m := [][]float64{
		{1e200, 1},
		{-1e200, 2},
		{1e200, 3},
	}

	s, err := Fit(m)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, s.Collapsed)

	out, err := s.Transform(m)
	require.NoError(t, err)

	for i := range out {
		assert.Zero(t, out[i][0])
		assert.False(t, math.IsNaN(out[i][1]) || math.IsInf(out[i][1], 0))
	}

	assert.Less(t, out[0][1], 0.0)
	assert.Greater(t, out[2][1], 0.0)
}

func TestNormalize_NonFiniteCoercedToZero(t *testing.T) {
	m := [][]float64{
		{math.NaN()},
		{math.Inf(1)},
		{2},
		{-2},
	}

	out, err := Normalize(m)
	require.NoError(t, err)

	// column behaves as {0, 0, 2, -2}: mean 0, std sqrt(2)
	assert.InDelta(t, 0, out[0][0], 1e-9)
	assert.InDelta(t, 0, out[1][0], 1e-9)
	assert.InDelta(t, 2/math.Sqrt(2), out[2][0], 1e-6)
	assert.InDelta(t, -2/math.Sqrt(2), out[3][0], 1e-6)
}

func TestNormalize_SingleRow(t *testing.T) {
	out, err := Normalize([][]float64{{0.5, 0.7, 120}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0, 0}}, out)
}

func TestNormalize_Empty(t *testing.T) {
	out, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNormalize_RaggedRows(t *testing.T) {
	_, err := Normalize([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, huberrors.ErrValidation)
}

func TestScaler_TransformShapeMismatch(t *testing.T) {
	s, err := Fit([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	_, err = s.Transform([][]float64{{1, 2, 3}})
	require.ErrorIs(t, err, huberrors.ErrValidation)
}

func TestAudioMatrix_ColumnOrder(t *testing.T) {
	tracks := []models.Track{
		{ID: "a", Audio: models.AudioFeatures{
			Danceability: 1, Energy: 2, Speechiness: 3, Acousticness: 4,
			Instrumentalness: 5, Liveness: 6, Valence: 7, Tempo: 8,
		}},
	}

	m := AudioMatrix(tracks)
	require.Len(t, m, 1)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, m[0])
	assert.Len(t, Columns, Dim)
	assert.Equal(t, 8, Dim)
}
