package store

import (
	"fmt"
	"math"
	"sort"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// Match is one matrix row scored against a query.
type Match struct {
	Index int
	Score float64
}

// Index answers threshold similarity queries over the catalog embeddings.
type Index interface {
	// Search returns rows with cosine similarity >= threshold, best first.
	// A query of the wrong dimension yields a VectorError.
	Search(query []float32, threshold float64) ([]Match, error)

	// Len returns the number of rows.
	Len() int

	// Dimensions returns the row width.
	Dimensions() int
}

// Matrix is an immutable set of L2-normalized row vectors. Search scans
// every row.
type Matrix struct {
	rows [][]float32
	dims int
}

var _ Index = (*Matrix)(nil)

// NewMatrix copies and normalizes vectors. All rows must share one width.
func NewMatrix(vectors [][]float32) (*Matrix, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding matrix needs at least one row")
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("embedding matrix rows must not be empty")
	}

	rows := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("row %d: %w", i, caterrors.VectorError(dims, len(v)))
		}
		rows[i] = normalized(v)
	}
	return &Matrix{rows: rows, dims: dims}, nil
}

// Search computes cosine similarity against every row.
func (m *Matrix) Search(query []float32, threshold float64) ([]Match, error) {
	if len(query) != m.dims {
		return nil, caterrors.VectorError(m.dims, len(query))
	}

	q := normalized(query)
	var matches []Match
	for i, row := range m.rows {
		score := dot(q, row)
		if score >= threshold {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	sortMatches(matches)
	return matches, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Dimensions returns the row width.
func (m *Matrix) Dimensions() int {
	return m.dims
}

// Row returns row i. Callers must not modify it.
func (m *Matrix) Row(i int) []float32 {
	return m.rows[i]
}

// sortMatches orders by score descending, then row index, so equal scores
// come out in catalog order.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalized returns a unit-length copy of v. Zero vectors stay zero and
// therefore score 0 against everything.
func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sumSquares float64
	for _, x := range out {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}

	norm := math.Sqrt(sumSquares)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
