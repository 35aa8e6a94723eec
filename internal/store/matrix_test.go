package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

func testRows() [][]float32 {
	return [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
		{2, 0, 0}, // same direction as row 0 after normalization
	}
}

func TestNewMatrix_Validation(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
	}{
		{"no rows", nil},
		{"empty row", [][]float32{{}}},
		{"ragged rows", [][]float32{{1, 2}, {1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatrix(tt.vectors)
			assert.Error(t, err)
		})
	}
}

func TestMatrix_Search_OrdersByScoreThenIndex(t *testing.T) {
	// Given a matrix where rows 0 and 3 point the same way
	m, err := NewMatrix(testRows())
	require.NoError(t, err)

	// When searching along the x axis
	matches, err := m.Search([]float32{1, 0, 0}, 0.5)
	require.NoError(t, err)

	// Then ties keep row order and the orthogonal row is filtered out
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, 3, matches[1].Index)
	assert.Equal(t, 2, matches[2].Index)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 1.0, matches[1].Score, 1e-6)
}

func TestMatrix_Search_ThresholdIsInclusive(t *testing.T) {
	m, err := NewMatrix([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	matches, err := m.Search([]float32{0, 1}, 1.0)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Index)
}

func TestMatrix_Search_DimensionMismatch(t *testing.T) {
	m, err := NewMatrix(testRows())
	require.NoError(t, err)

	_, err = m.Search([]float32{1, 0}, 0)

	require.Error(t, err)
	assert.Equal(t, caterrors.ErrCodeDimensionMismatch, caterrors.GetCode(err))
}

func TestMatrix_Search_ZeroQueryMatchesNothingAboveZero(t *testing.T) {
	m, err := NewMatrix(testRows())
	require.NoError(t, err)

	matches, err := m.Search([]float32{0, 0, 0}, 0.1)

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNewMatrix_CopiesInput(t *testing.T) {
	rows := [][]float32{{3, 4}}
	m, err := NewMatrix(rows)
	require.NoError(t, err)

	rows[0][0] = 100

	assert.InDelta(t, 0.6, m.Row(0)[0], 1e-6)
	assert.InDelta(t, 0.8, m.Row(0)[1], 1e-6)
}

func TestHNSWIndex_AgreesWithMatrixOnSmallSets(t *testing.T) {
	// Given both index kinds over the same rows
	m, err := NewMatrix(testRows())
	require.NoError(t, err)
	h := NewHNSWIndex(m, HNSWConfig{M: 4, EfSearch: 16, Seed: 7})

	// When searching
	exact, err := m.Search([]float32{1, 0.05, 0}, 0.3)
	require.NoError(t, err)
	approx, err := h.Search([]float32{1, 0.05, 0}, 0.3)
	require.NoError(t, err)

	// Then the candidate set is small enough for the graph to be exhaustive
	assert.Equal(t, exact, approx)
	assert.Equal(t, m.Len(), h.Len())
	assert.Equal(t, 3, h.Dimensions())
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	m, err := NewMatrix(testRows())
	require.NoError(t, err)
	h := NewHNSWIndex(m, HNSWConfig{})

	_, err = h.Search([]float32{1}, 0)

	assert.Equal(t, caterrors.ErrCodeDimensionMismatch, caterrors.GetCode(err))
}
