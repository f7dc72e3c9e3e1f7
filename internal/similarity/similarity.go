// Package similarity computes pairwise cosine similarity over a batch of
// embedding vectors.
package similarity

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyInput indicates an empty embedding set.
	ErrEmptyInput = errors.New("similarity: empty embedding set")

	// ErrDimensionMismatch indicates embeddings of differing length.
	ErrDimensionMismatch = errors.New("similarity: embedding dimension mismatch")
)

// Matrix is a square symmetric similarity matrix. Storage is a single
// triangle, so At(i, j) == At(j, i) holds exactly.
type Matrix struct {
	sym *mat.SymDense
	n   int
}

// NewMatrix returns an n×n matrix with a unit diagonal and zeros elsewhere.
func NewMatrix(n int) *Matrix {
	if n <= 0 {
		return &Matrix{}
	}
	m := &Matrix{sym: mat.NewSymDense(n, nil), n: n}
	for i := 0; i < n; i++ {
		m.sym.SetSym(i, i, 1)
	}
	return m
}

// Size returns N.
func (m *Matrix) Size() int {
	return m.n
}

// At returns the similarity between records i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.sym.At(i, j)
}

// Set stores v for the pair (i, j) and its mirror.
func (m *Matrix) Set(i, j int, v float64) {
	m.sym.SetSym(i, j, v)
}

// PairMean returns the mean similarity over all pairs i<j drawn from
// indices. Fewer than two indices yields 1.0.
func (m *Matrix) PairMean(indices []int) float64 {
	if len(indices) < 2 {
		return 1.0
	}
	var sum float64
	var pairs int
	for a := 0; a < len(indices); a++ {
		for b := a + 1; b < len(indices); b++ {
			sum += m.At(indices[a], indices[b])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// Compute returns the cosine similarity matrix of embeddings.
//
// Vectors are L2-normalised and the Gram product is written straight into
// symmetric storage. The diagonal is exactly 1.0. A zero vector has
// similarity 0 with every other vector.
func Compute(embeddings [][]float32) (*Matrix, error) {
	n := len(embeddings)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector at index 0", ErrDimensionMismatch)
	}

	data := make([]float64, n*dim)
	for i, vec := range embeddings {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: index %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vec), dim)
		}
		row := data[i*dim : (i+1)*dim]
		for d, v := range vec {
			row[d] = float64(v)
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}

	normalized := mat.NewDense(n, dim, data)
	var gram mat.SymDense
	gram.SymOuterK(1, normalized)

	m := &Matrix{sym: &gram, n: n}
	for i := 0; i < n; i++ {
		m.sym.SetSym(i, i, 1)
	}
	return m, nil
}
