package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/catmatch/internal/config"
	"github.com/Aman-CERP/catmatch/internal/embed"
	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
	"github.com/Aman-CERP/catmatch/internal/logging"
	"github.com/Aman-CERP/catmatch/internal/search"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Telemetry.Path = filepath.Join(t.TempDir(), "telemetry.db")
	return cfg
}

func newRuntime(t *testing.T, cfg *config.Config, opts ...Option) *Runtime {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	rt, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestNew_DefaultStack(t *testing.T) {
	// Given the default configuration (static embedder, bleve)
	rt := newRuntime(t, testConfig(t))

	// When checking health
	h := rt.Health(context.Background())

	// Then every component is up
	assert.Equal(t, search.StatusHealthy, h.Status)
	assert.Equal(t, search.StatusOK, h.Components.Model)
	assert.Equal(t, search.StatusOK, h.Components.FulltextBackend)
	assert.Equal(t, 8, h.Components.Categories)
}

func TestRuntime_SearchAndStats(t *testing.T) {
	rt := newRuntime(t, testConfig(t))
	ctx := context.Background()

	resp, err := rt.Search(ctx, rt.NewRequest("шпаклевка"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Шпатлевка", resp.Results[0].Subcategory)
	assert.Equal(t, search.MethodSynonym, resp.Results[0].Method)

	_, err = rt.Search(ctx, rt.NewRequest("несуществующий товар"))
	require.NoError(t, err)

	// Close drains the query log; reopen to read it back
	path := rt.Config().Telemetry.Path
	require.NoError(t, rt.Close())

	cfg := testConfig(t)
	cfg.Telemetry.Path = path
	rt2 := newRuntime(t, cfg)
	st, err := rt2.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, st.TotalCategories)
	assert.Equal(t, 8, st.TotalSubcategories)
	assert.Equal(t, "static-hash-256", st.ModelName)
	assert.Equal(t, "static", st.EmbeddingProvider)
	assert.Equal(t, "bleve", st.FulltextBackend)
	assert.True(t, st.FulltextAvailable)
	assert.ElementsMatch(t, []string{"exact", "synonym", "semantic", "fulltext"}, st.SupportedMethods)
	assert.Equal(t, int64(2), st.TotalSearches)
}

func TestNew_FullTextDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.FullText.Provider = "none"
	cfg.Telemetry.Enabled = false

	rt := newRuntime(t, cfg)

	h := rt.Health(context.Background())
	assert.Equal(t, search.StatusHealthy, h.Status)
	assert.Equal(t, search.StatusUnavailable, h.Components.FulltextBackend)

	st, err := rt.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "none", st.FulltextBackend)
	assert.Nil(t, st.Searches)
	assert.Equal(t, int64(0), st.TotalSearches)
}

func TestNew_UnreachableEmbedderDegrades(t *testing.T) {
	// Given an Ollama provider pointing at a closed port
	cfg := testConfig(t)
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = "http://127.0.0.1:1"
	cfg.Embeddings.Timeout = "200ms"

	// When building the runtime
	rt := newRuntime(t, cfg)

	// Then it still serves lexical matches and reports degraded health
	h := rt.Health(context.Background())
	assert.Equal(t, search.StatusDegraded, h.Status)
	assert.Equal(t, search.StatusError, h.Components.Model)

	resp, err := rt.Search(context.Background(), rt.NewRequest("кафель"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Плитка", resp.Results[0].Subcategory)
}

func TestNew_HNSWIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vector.Index = "hnsw"
	cfg.Vector.SnapshotDir = t.TempDir()

	rt := newRuntime(t, cfg, WithEmbedder(embed.NewStaticEmbedder(64)))

	resp, err := rt.Search(context.Background(), search.Request{Query: "кафель", Limit: 5, Threshold: 0.6})
	require.NoError(t, err)
	assert.Equal(t, "Плитка", resp.Results[0].Subcategory)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.FullText.Provider = "solr"

	_, err := New(context.Background(), cfg, WithLogger(logging.Discard()))

	require.Error(t, err)
	assert.Equal(t, caterrors.ErrCodeConfigInvalid, caterrors.GetCode(err))
}

func TestNew_MissingCatalogIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, WithLogger(logging.Discard()))

	require.Error(t, err)
	assert.Equal(t, caterrors.ErrCodeCatalogNotFound, caterrors.GetCode(err))
}
