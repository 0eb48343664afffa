// Package features turns raw audio attributes into the standardized numeric half of a composed vector.
package features

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soundgraph/hub/internal/huberrors"
	"github.com/soundgraph/hub/internal/models"
)

// Epsilon is added to every column's standard deviation before dividing, so a constant column
// maps to 0 instead of NaN. There is no cutoff below it: a column with std 5e-11 is still scaled
// by 1/(std+Epsilon), giving values around 0.05.
const Epsilon = 1e-9

// Columns is the fixed audio attribute order of every feature row.
var Columns = []string{
	"danceability",
	"energy",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
}

// Dim is the number of audio attributes per track.
var Dim = len(Columns)

// Row returns the audio attributes of a track in Columns order.
func Row(a models.AudioFeatures) []float64 {
	return []float64{
		a.Danceability,
		a.Energy,
		a.Speechiness,
		a.Acousticness,
		a.Instrumentalness,
		a.Liveness,
		a.Valence,
		a.Tempo,
	}
}

// FromRow is the inverse of Row. Missing trailing values are 0.
func FromRow(row []float64) models.AudioFeatures {
	v := make([]float64, Dim)
	copy(v, row)

	return models.AudioFeatures{
		Danceability:     v[0],
		Energy:           v[1],
		Speechiness:      v[2],
		Acousticness:     v[3],
		Instrumentalness: v[4],
		Liveness:         v[5],
		Valence:          v[6],
		Tempo:            v[7],
	}
}

// AudioMatrix builds the N×Dim raw attribute matrix for a catalog, one row per track in input order.
func AudioMatrix(tracks []models.Track) [][]float64 {
	m := make([][]float64, len(tracks))
	for i := range tracks {
		m[i] = Row(tracks[i].Audio)
	}

	return m
}

// Scaler holds per-column population mean and standard deviation fitted over a whole catalog.
// Collapsed marks columns whose statistics overflowed; Transform writes 0 for them.
type Scaler struct {
	Means     []float64
	StdDevs   []float64
	Collapsed []bool
}

// Fit computes column statistics over all rows. Non-finite values count as 0.
// An empty matrix yields an empty Scaler.
func Fit(m [][]float64) (*Scaler, error) {
	if len(m) == 0 {
		return &Scaler{}, nil
	}

	cols := len(m[0])
	if err := checkShape(m, cols); err != nil {
		return nil, err
	}

	s := &Scaler{
		Means:     make([]float64, cols),
		StdDevs:   make([]float64, cols),
		Collapsed: make([]bool, cols),
	}

	col := make([]float64, len(m))
	for j := 0; j < cols; j++ {
		for i := range m {
			col[i] = finite(m[i][j])
		}

		mean, std := stat.PopMeanStdDev(col, nil)
		if !isFinite(mean) || !isFinite(std) {
			slog.Warn("features: column statistics overflowed, column set to 0",
				"column", columnName(j, cols), "mean", mean, "std", std)

			s.Collapsed[j] = true

			continue
		}

		s.Means[j], s.StdDevs[j] = mean, std
	}

	return s, nil
}

// Transform returns a new matrix with each column shifted by its mean and scaled by std+Epsilon.
// Collapsed columns are 0. The input is not modified.
func (s *Scaler) Transform(m [][]float64) ([][]float64, error) {
	cols := len(s.Means)
	if err := checkShape(m, cols); err != nil {
		return nil, err
	}

	out := make([][]float64, len(m))
	for i := range m {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			if j < len(s.Collapsed) && s.Collapsed[j] {
				continue
			}

			row[j] = (finite(m[i][j]) - s.Means[j]) / (s.StdDevs[j] + Epsilon)
		}

		out[i] = row
	}

	return out, nil
}

// Normalize fits a Scaler on m and transforms m with it.
func Normalize(m [][]float64) ([][]float64, error) {
	s, err := Fit(m)
	if err != nil {
		return nil, err
	}

	if len(m) == 0 {
		return [][]float64{}, nil
	}

	return s.Transform(m)
}

func checkShape(m [][]float64, cols int) error {
	for i, row := range m {
		if len(row) != cols {
			return huberrors.NewValidationError("features",
				fmt.Sprintf("row %d has %d columns, want %d", i, len(row), cols))
		}
	}

	return nil
}

func finite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}

	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func columnName(j, cols int) string {
	if cols == Dim {
		return Columns[j]
	}

	return fmt.Sprintf("#%d", j)
}
