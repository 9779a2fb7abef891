// Package semantic provides the in-memory vector index used for similarity
// search over the corpus. Vectors are L2-normalized, so the inner product of
// a stored vector with a query vector is their cosine similarity in [-1, 1].
package semantic

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// NormTolerance is how far a vector's L2 norm may drift from 1 before the
// index rejects it.
const NormTolerance = 1e-3

var (
	ErrEmpty         = errors.New("semantic: no vectors to index")
	ErrDimMismatch   = errors.New("semantic: vector dimension mismatch")
	ErrNotNormalized = errors.New("semantic: vector is not L2-normalized")
)

// Index is a flat inner-product index. Position is preserved: the vector
// inserted at position i keeps position i in every search result. Immutable
// after Build, so safe for concurrent searches.
type Index struct {
	dim     int
	vectors [][]float32
}

// Build constructs an Index over an ordered sequence of normalized vectors
// sharing one dimension.
func Build(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}

	dim := len(vectors[0])
	owned := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dim %d, want %d", ErrDimMismatch, i, len(v), dim)
		}
		if math.Abs(float64(Norm(v))-1) > NormTolerance {
			return nil, fmt.Errorf("%w: vector %d has norm %g", ErrNotNormalized, i, Norm(v))
		}
		cp := make([]float32, dim)
		copy(cp, v)
		owned[i] = cp
	}

	return &Index{dim: dim, vectors: owned}, nil
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// Dim returns the shared vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Search returns the k highest-inner-product stored vectors for the query,
// ordered descending by score with ties broken by ascending position so
// repeated searches are deterministic. k is clamped to the index size.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dim %d, want %d", ErrDimMismatch, len(query), ix.dim)
	}
	if math.Abs(float64(Norm(query))-1) > NormTolerance {
		return nil, fmt.Errorf("%w: query has norm %g", ErrNotNormalized, Norm(query))
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Position: i, Score: Dot(query, v)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Position < hits[b].Position
	})
	return hits[:k], nil
}

// Dot computes the inner product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm computes the L2 norm of a vector.
func Norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// Normalize scales v to unit L2 norm in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] /= n
	}
	return v
}
