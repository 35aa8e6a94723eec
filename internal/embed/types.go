// Package embed converts text to fixed-length vectors for the semantic
// search stage.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultTimeout bounds a single embedding request to a remote provider.
	DefaultTimeout = 30 * time.Second

	// DefaultModel is reported for remote providers when no model is configured.
	DefaultModel = "cointegrated/rubert-tiny2"

	// StaticDimensions is the default dimension of the static embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text. Implementations must be
// deterministic for a fixed model and input, and safe for concurrent use.
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one equal-length vector per input, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension, 0 if not yet known
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// Normalize scales v to unit length. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// toFloat32 converts JSON-decoded float64 vectors.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
