// Package recognize holds the boundary to the face recognition service:
// feature extraction from images and similarity scoring between encodings.
package recognize

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// CosineOracle scores two encodings locally by cosine similarity, mapped
// from [-1,1] to a [0,1] confidence. It is pure and deterministic; a
// zero-norm vector scores similarity 0 against anything.
type CosineOracle struct{}

// Score implements the oracle contract.
func (CosineOracle) Score(_ context.Context, a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("recognize: cannot compare %d-dim and %d-dim encodings", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	sim := 0.0
	if na > 0 && nb > 0 {
		sim = dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
	return clamp((sim+1)/2, 0, 1), nil
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
