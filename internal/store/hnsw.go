package store

import (
	"math/rand"

	"github.com/coder/hnsw"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// HNSWConfig tunes the approximate index.
type HNSWConfig struct {
	M        int
	EfSearch int
	// Seed fixes level generation so repeated builds yield the same graph.
	Seed int64
}

// HNSWIndex finds candidate rows through a coder/hnsw graph and re-scores
// them with exact cosine similarity against the backing matrix.
type HNSWIndex struct {
	matrix *Matrix
	graph  *hnsw.Graph[int]
	k      int
}

var _ Index = (*HNSWIndex)(nil)

// NewHNSWIndex builds the graph over every row of m, in row order.
func NewHNSWIndex(m *Matrix, cfg HNSWConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	graph.Rng = rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < m.Len(); i++ {
		graph.Add(hnsw.MakeNode(i, m.Row(i)))
	}

	k := cfg.EfSearch
	if k > m.Len() {
		k = m.Len()
	}
	return &HNSWIndex{matrix: m, graph: graph, k: k}
}

// Search returns graph candidates whose exact score clears threshold.
func (h *HNSWIndex) Search(query []float32, threshold float64) ([]Match, error) {
	if len(query) != h.matrix.Dimensions() {
		return nil, caterrors.VectorError(h.matrix.Dimensions(), len(query))
	}

	q := normalized(query)
	var matches []Match
	for _, node := range h.graph.Search(q, h.k) {
		score := dot(q, h.matrix.Row(node.Key))
		if score >= threshold {
			matches = append(matches, Match{Index: node.Key, Score: score})
		}
	}
	sortMatches(matches)
	return matches, nil
}

// Len returns the number of rows.
func (h *HNSWIndex) Len() int {
	return h.matrix.Len()
}

// Dimensions returns the row width.
func (h *HNSWIndex) Dimensions() int {
	return h.matrix.Dimensions()
}
