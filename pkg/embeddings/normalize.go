// Package embeddings provides vector utilities shared by embedding clients and the similarity engine.
package embeddings

import (
	"math"
)

// Float is the element type of an embedding or composed vector.
type Float interface {
	~float32 | ~float64
}

// Norm returns the Euclidean length of v, accumulated in float64.
func Norm[T Float](v []T) float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	return math.Sqrt(sumSquares)
}

// NormalizeL2 scales v in place to unit length and returns the original length.
// A zero vector is left unchanged and 0 is returned.
func NormalizeL2[T Float](v []T) float64 {
	magnitude := Norm(v)
	if magnitude == 0 {
		return 0
	}

	for i := range v {
		v[i] = T(float64(v[i]) / magnitude)
	}

	return magnitude
}

// Dot returns the dot product of a and b over their common prefix.
func Dot[T Float](a, b []T) float64 {
	n := min(len(a), len(b))

	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

// ToFloat64 converts a float32 embedding to a new float64 slice.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}
