package embed

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings (offline, deterministic)
	ProviderStatic ProviderType = "static"

	// ProviderOllama uses a local Ollama server
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses any OpenAI-compatible embeddings endpoint
	ProviderOpenAI ProviderType = "openai"
)

// Options selects and configures a provider.
type Options struct {
	Provider      ProviderType
	Model         string
	Dimensions    int
	OllamaHost    string
	OpenAIBaseURL string
	OpenAIToken   string
	Timeout       time.Duration

	// CacheSize bounds the query embedding cache. Negative disables it.
	CacheSize int
}

// NewEmbedder creates the configured embedder wrapped in an LRU cache.
// An explicitly selected remote provider that cannot be reached is an error;
// there is no silent fallback to the static embedder.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch ParseProvider(string(opts.Provider)) {
	case ProviderOllama:
		embedder, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       opts.OllamaHost,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			Timeout:    opts.Timeout,
		})
	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(ctx, OpenAIConfig{
			BaseURL:    opts.OpenAIBaseURL,
			Token:      opts.OpenAIToken,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
		})
	case ProviderStatic:
		embedder = NewStaticEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q (valid: %s)",
			opts.Provider, strings.Join(ValidProviders(), ", "))
	}
	if err != nil {
		return nil, err
	}

	if opts.CacheSize < 0 {
		return embedder, nil
	}
	return NewCachedEmbedder(embedder, opts.CacheSize), nil
}

// ParseProvider normalizes a provider name. Empty selects static.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return ProviderStatic
	case "ollama":
		return ProviderOllama
	case "openai":
		return ProviderOpenAI
	default:
		return ProviderType(s)
	}
}

// ValidProviders lists the accepted provider names.
func ValidProviders() []string {
	return []string{string(ProviderStatic), string(ProviderOllama), string(ProviderOpenAI)}
}

// Info describes an embedder for health and stats output.
type Info struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Available  bool   `json:"available"`
}

// GetInfo collects Info, unwrapping the cache to report the real provider.
func GetInfo(ctx context.Context, e Embedder) Info {
	inner := e
	if c, ok := e.(*CachedEmbedder); ok {
		inner = c.Inner()
	}

	provider := "unknown"
	switch inner.(type) {
	case *StaticEmbedder:
		provider = string(ProviderStatic)
	case *OllamaEmbedder:
		provider = string(ProviderOllama)
	case *OpenAIEmbedder:
		provider = string(ProviderOpenAI)
	}

	return Info{
		Provider:   provider,
		Model:      e.ModelName(),
		Dimensions: e.Dimensions(),
		Available:  e.Available(ctx),
	}
}
