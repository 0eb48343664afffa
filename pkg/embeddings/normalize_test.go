package embeddings

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	t.Run("unit vector unchanged", func(t *testing.T) {
		v := []float32{1, 0, 0}
		NormalizeL2(v)

		if v[0] != 1 || v[1] != 0 || v[2] != 0 {
			t.Errorf("unit vector changed: got %v", v)
		}
	})

	t.Run("normalizes to unit length and returns magnitude", func(t *testing.T) {
		vec := []float64{3, 4}
		mag := NormalizeL2(vec)

		const tol = 1e-9
		if math.Abs(mag-5) > tol {
			t.Errorf("magnitude = %f, want 5", mag)
		}

		if math.Abs(vec[0]-0.6) > tol || math.Abs(vec[1]-0.8) > tol {
			t.Errorf("expected (0.6, 0.8), got (%f, %f)", vec[0], vec[1])
		}

		if math.Abs(Norm(vec)-1) > tol {
			t.Errorf("norm after normalize = %f, want 1", Norm(vec))
		}
	})

	t.Run("zero vector does not panic", func(t *testing.T) {
		v := []float64{0, 0, 0}
		if mag := NormalizeL2(v); mag != 0 {
			t.Errorf("magnitude = %f, want 0", mag)
		}

		if v[0] != 0 || v[1] != 0 || v[2] != 0 {
			t.Errorf("zero vector should remain unchanged: got %v", v)
		}
	})
}

func TestDot(t *testing.T) {
	if got := Dot([]float64{1, 2, 3}, []float64{4, 5, 6}); got != 32 {
		t.Errorf("Dot = %f, want 32", got)
	}

	if got := Dot([]float32{1, 2}, []float32{3}); got != 3 {
		t.Errorf("Dot over common prefix = %f, want 3", got)
	}
}

func TestToFloat64(t *testing.T) {
	got := ToFloat64([]float32{0.5, -1})
	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Errorf("ToFloat64 = %v", got)
	}
}
