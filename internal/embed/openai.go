package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint, such as a
// text-embeddings-inference server hosting cointegrated/rubert-tiny2.
type OpenAIConfig struct {
	BaseURL    string
	Token      string
	Model      string
	Dimensions int
}

// OpenAIEmbedder generates embeddings through langchaingo's OpenAI client.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates the client. When Dimensions is 0 it is detected
// with one probe request.
func NewOpenAIEmbedder(ctx context.Context, cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Token == "" {
		// local OpenAI-compatible servers ignore the token but the client requires one
		cfg.Token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, caterrors.EmbeddingError("failed to create openai client", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, caterrors.EmbeddingError("failed to create embedder", err)
	}

	e := &OpenAIEmbedder{
		embedder: embedder,
		model:    cfg.Model,
		dims:     cfg.Dimensions,
	}

	if e.dims == 0 {
		vec, err := e.Embed(ctx, "проверка")
		if err != nil {
			return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
		}
		e.dims = len(vec)
	}
	return e, nil
}

// Embed generates embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, caterrors.EmbeddingError("openai embedding request failed", err)
	}
	if len(vecs) != len(texts) {
		return nil, caterrors.EmbeddingError(
			fmt.Sprintf("endpoint returned %d embeddings for %d inputs", len(vecs), len(texts)), nil)
	}

	for i := range vecs {
		vecs[i] = Normalize(vecs[i])
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available reports whether the embedder is open. The endpoint itself is
// probed at construction.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
