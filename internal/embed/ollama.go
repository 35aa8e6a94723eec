package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"resty.dev/v3"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is a multilingual embedding model available in Ollama.
	DefaultOllamaModel = "bge-m3"
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Retry      caterrors.RetryConfig

	// SkipHealthCheck skips model discovery at construction (tests).
	SkipHealthCheck bool
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaEmbedder generates embeddings using Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	client *resty.Client
	config OllamaConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder connects to Ollama, checks that the model is pulled and
// detects its dimension unless one is configured.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = caterrors.DefaultRetryConfig()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Host, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	e := &OllamaEmbedder{
		client: client,
		config: cfg,
		dims:   cfg.Dimensions,
	}

	if cfg.SkipHealthCheck {
		return e, nil
	}

	if err := e.checkModel(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	if e.dims == 0 {
		vecs, err := e.doEmbed(ctx, []string{"проверка"})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
		}
		e.dims = len(vecs[0])
	}
	return e, nil
}

// checkModel verifies Ollama is reachable and the model has been pulled.
func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	var tags ollamaTagsResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetResult(&tags).
		Get("/api/tags")
	if err != nil {
		return caterrors.BackendUnavailable("ollama", err).
			WithSuggestion("start Ollama with `ollama serve` or use embeddings.provider: static")
	}
	if resp.IsError() {
		return caterrors.BackendUnavailable("ollama", fmt.Errorf("HTTP %d", resp.StatusCode()))
	}

	for _, m := range tags.Models {
		if m.Name == e.config.Model || strings.TrimSuffix(m.Name, ":latest") == e.config.Model {
			return nil
		}
	}
	return caterrors.EmbeddingError(fmt.Sprintf("ollama model %q is not pulled", e.config.Model), nil).
		WithSuggestion("ollama pull " + e.config.Model)
}

// Embed generates embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, retrying network failures.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	return caterrors.RetryWithResult(ctx, e.config.Retry, func() ([][]float32, error) {
		return e.doEmbed(ctx, texts)
	})
}

func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	var out ollamaEmbedResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(ollamaEmbedRequest{Model: e.config.Model, Input: texts}).
		SetResult(&out).
		Post("/api/embed")
	if err != nil {
		return nil, caterrors.New(caterrors.ErrCodeNetworkUnavailable, "ollama request failed", err)
	}
	if resp.StatusCode() >= 500 {
		return nil, caterrors.New(caterrors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("ollama returned HTTP %d", resp.StatusCode()), nil)
	}
	if resp.IsError() {
		return nil, caterrors.EmbeddingError(
			fmt.Sprintf("ollama returned HTTP %d: %s", resp.StatusCode(), resp.String()), nil)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, caterrors.EmbeddingError(
			fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(out.Embeddings), len(texts)), nil)
	}

	vecs := make([][]float32, len(out.Embeddings))
	for i, v := range out.Embeddings {
		vecs[i] = Normalize(toFloat32(v))
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Available checks that Ollama answers.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}

	resp, err := e.client.R().SetContext(ctx).Get("/api/tags")
	return err == nil && !resp.IsError()
}

// Close releases the HTTP client.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.client.Close()
}
