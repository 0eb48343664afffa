package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundgraph/hub/internal/huberrors"
)

func TestCompose_Positional(t *testing.T) {
	ids := []string{"a", "b"}

	got, err := Compose(ids,
		TextEmbeddings{IDs: ids, Vectors: [][]float32{{1, 2}, {3, 4}}},
		AudioVectors{IDs: ids, Vectors: [][]float64{{0.5}, {-0.5}}},
	)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, 2, 0.5}, {3, 4, -0.5}}, got)
}

func TestCompose_ReordersByID(t *testing.T) {
	got, err := Compose([]string{"a", "b", "c"},
		TextEmbeddings{IDs: []string{"c", "a", "b"}, Vectors: [][]float32{{3}, {1}, {2}}},
		AudioVectors{IDs: []string{"b", "c", "a"}, Vectors: [][]float64{{20}, {30}, {10}}},
	)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, 10}, {2, 20}, {3, 30}}, got)
}

func TestCompose_Errors(t *testing.T) {
	ids := []string{"a", "b"}

	tests := []struct {
		name  string
		text  TextEmbeddings
		audio AudioVectors
	}{
		{
			name:  "missing text id",
			text:  TextEmbeddings{IDs: []string{"a", "x"}, Vectors: [][]float32{{1}, {2}}},
			audio: AudioVectors{IDs: ids, Vectors: [][]float64{{1}, {2}}},
		},
		{
			name:  "duplicate audio id",
			text:  TextEmbeddings{IDs: ids, Vectors: [][]float32{{1}, {2}}},
			audio: AudioVectors{IDs: []string{"b", "b"}, Vectors: [][]float64{{1}, {2}}},
		},
		{
			name:  "ids and vectors disagree",
			text:  TextEmbeddings{IDs: ids, Vectors: [][]float32{{1}}},
			audio: AudioVectors{IDs: ids, Vectors: [][]float64{{1}, {2}}},
		},
		{
			name:  "inconsistent embedding dimension",
			text:  TextEmbeddings{IDs: ids, Vectors: [][]float32{{1, 2}, {3}}},
			audio: AudioVectors{IDs: ids, Vectors: [][]float64{{1}, {2}}},
		},
		{
			name:  "inconsistent audio dimension",
			text:  TextEmbeddings{IDs: ids, Vectors: [][]float32{{1}, {2}}},
			audio: AudioVectors{IDs: ids, Vectors: [][]float64{{1, 1}, {2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(ids, tt.text, tt.audio)
			assert.ErrorIs(t, err, huberrors.ErrValidation)
		})
	}
}

func TestCompose_Empty(t *testing.T) {
	got, err := Compose(nil, TextEmbeddings{}, AudioVectors{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
