// Package vector scores embeddings against each other.
package vector

import (
	"fmt"
	"math"

	"github.com/starford/journal/internal/apperr"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different length are rejected; a zero-magnitude vector scores 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine length mismatch %d vs %d: %w", len(a), len(b), apperr.ErrValidation)
	}
	var dot, na2, nb2 float64
	for i := range a {
		dot += a[i] * b[i]
		na2 += a[i] * a[i]
		nb2 += b[i] * b[i]
	}
	if na2 == 0 || nb2 == 0 {
		return 0, nil
	}
	s := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	return math.Max(-1, math.Min(1, s)), nil
}
