package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config lookup at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 0.6, cfg.Search.DefaultThreshold)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "exact", cfg.Vector.Index)
	assert.Equal(t, "bleve", cfg.FullText.Provider)
	assert.Equal(t, 20, cfg.FullText.Size)
	assert.Equal(t, 10.0, cfg.FullText.ScoreDivisor)
	assert.Equal(t, 2*time.Second, cfg.FullText.TimeoutDuration())
	assert.True(t, cfg.Telemetry.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "catmatch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "catmatch", "config.yaml"), []byte(`
search:
  default_limit: 7
fulltext:
  provider: elasticsearch
`), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".catmatch.yaml"), []byte(`
fulltext:
  provider: none
telemetry:
  enabled: false
`), 0o644))

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: values are layered and untouched defaults survive
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
	assert.Equal(t, "none", cfg.FullText.Provider)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.6, cfg.Search.DefaultThreshold)
	assert.Equal(t, "categories", cfg.FullText.Index)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".catmatch.yml"), []byte("vector:\n  index: hnsw\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hnsw", cfg.Vector.Index)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CATMATCH_FULLTEXT_PROVIDER", "none")
	t.Setenv("ELASTICSEARCH_URL", "http://es:9200")
	t.Setenv("CATMATCH_DEFAULT_THRESHOLD", "0.75")
	t.Setenv("CATMATCH_DEFAULT_LIMIT", "-3")
	t.Setenv("CATMATCH_TELEMETRY", "0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.FullText.Provider)
	assert.Equal(t, "http://es:9200", cfg.FullText.URL)
	assert.Equal(t, 0.75, cfg.Search.DefaultThreshold)
	assert.Equal(t, 10, cfg.Search.DefaultLimit, "invalid env values are ignored")
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".catmatch.yaml"), []byte("search: [unclosed"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"threshold above one", func(c *Config) { c.Search.DefaultThreshold = 1.5 }, "default_threshold"},
		{"negative limit", func(c *Config) { c.Search.DefaultLimit = -1 }, "default_limit"},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "bert" }, "embeddings.provider"},
		{"unknown index", func(c *Config) { c.Vector.Index = "faiss" }, "vector.index"},
		{"unknown fulltext", func(c *Config) { c.FullText.Provider = "solr" }, "fulltext.provider"},
		{"zero divisor", func(c *Config) { c.FullText.ScoreDivisor = 0 }, "score_divisor"},
		{"bad timeout", func(c *Config) { c.FullText.Timeout = "soon" }, "fulltext.timeout"},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"bad level", func(c *Config) { c.Server.LogLevel = "trace" }, "server.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTripsThroughLoadFile(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.FullText.Provider = "none"
	cfg.Search.MaxLimit = 50

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "none", loaded.FullText.Provider)
	assert.Equal(t, 50, loaded.Search.MaxLimit)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseDuration("250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	_, err = parseDuration("-1s")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".catmatch", "t.db"), ExpandHome("~/.catmatch/t.db"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "", ExpandHome(""))
}
