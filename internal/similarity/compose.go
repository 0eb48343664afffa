package similarity

import (
	"fmt"

	"github.com/soundgraph/hub/internal/huberrors"
)

// TextEmbeddings is the embedder output tagged with the track id of each vector.
type TextEmbeddings struct {
	IDs     []string
	Vectors [][]float32
}

// AudioVectors is the normalizer output tagged with the track id of each row.
type AudioVectors struct {
	IDs     []string
	Vectors [][]float64
}

// Compose builds one vector per id: the text embedding followed by the normalized audio row.
// Inputs are joined by track id. When a producer's ids already line up with ids the join is
// positional; otherwise rows are looked up by id. A missing or duplicated id is an error, as
// is any row whose dimension differs from the first row of the same producer.
func Compose(ids []string, text TextEmbeddings, audio AudioVectors) ([][]float64, error) {
	textIdx, err := alignment("text", ids, text.IDs, len(text.Vectors))
	if err != nil {
		return nil, err
	}

	audioIdx, err := alignment("audio", ids, audio.IDs, len(audio.Vectors))
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return [][]float64{}, nil
	}

	textDim := len(text.Vectors[textIdx[0]])
	audioDim := len(audio.Vectors[audioIdx[0]])

	out := make([][]float64, len(ids))

	for i, id := range ids {
		tv := text.Vectors[textIdx[i]]
		av := audio.Vectors[audioIdx[i]]

		if len(tv) != textDim {
			return nil, huberrors.NewValidationError("text",
				fmt.Sprintf("embedding for %q has dimension %d, want %d", id, len(tv), textDim))
		}

		if len(av) != audioDim {
			return nil, huberrors.NewValidationError("audio",
				fmt.Sprintf("audio row for %q has dimension %d, want %d", id, len(av), audioDim))
		}

		row := make([]float64, textDim+audioDim)
		for j, x := range tv {
			row[j] = float64(x)
		}

		copy(row[textDim:], av)
		out[i] = row
	}

	return out, nil
}

// alignment maps each position of ids to the producer row holding the same id.
func alignment(field string, ids, producerIDs []string, rows int) ([]int, error) {
	if len(producerIDs) != rows {
		return nil, huberrors.NewValidationError(field,
			fmt.Sprintf("%d ids for %d vectors", len(producerIDs), rows))
	}

	idx := make([]int, len(ids))

	if positional(ids, producerIDs) {
		for i := range idx {
			idx[i] = i
		}

		return idx, nil
	}

	byID := make(map[string]int, len(producerIDs))
	for pos, id := range producerIDs {
		if _, dup := byID[id]; dup {
			return nil, huberrors.NewValidationError(field, fmt.Sprintf("duplicate track id %q", id))
		}

		byID[id] = pos
	}

	for i, id := range ids {
		pos, ok := byID[id]
		if !ok {
			return nil, huberrors.NewValidationError(field, fmt.Sprintf("no vector for track id %q", id))
		}

		idx[i] = pos
	}

	return idx, nil
}

func positional(ids, producerIDs []string) bool {
	if len(ids) != len(producerIDs) {
		return false
	}

	for i := range ids {
		if ids[i] != producerIDs[i] {
			return false
		}
	}

	return true
}
