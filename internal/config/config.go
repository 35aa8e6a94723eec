// Package config loads catmatch configuration.
//
// Precedence, lowest first:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/catmatch/config.yaml)
//  3. Project config (.catmatch.yaml in the working directory)
//  4. Environment variables (CATMATCH_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete catmatch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Catalog    CatalogConfig    `yaml:"catalog" json:"catalog"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	FullText   FullTextConfig   `yaml:"fulltext" json:"fulltext"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
}

// CatalogConfig points at the taxonomy file. Empty Path uses the built-in
// construction materials catalog.
type CatalogConfig struct {
	Path string `yaml:"path" json:"path"`
}

// SearchConfig holds request defaults.
type SearchConfig struct {
	DefaultLimit     int     `yaml:"default_limit" json:"default_limit"`
	DefaultThreshold float64 `yaml:"default_threshold" json:"default_threshold"`
	// MaxLimit caps limits accepted by the transports. 0 disables the cap.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	Provider      string `yaml:"provider" json:"provider"` // static, ollama, openai
	Model         string `yaml:"model" json:"model"`
	Dimensions    int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost    string `yaml:"ollama_host" json:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url" json:"openai_base_url"`
	OpenAIToken   string `yaml:"openai_token" json:"-"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	Timeout       string `yaml:"timeout" json:"timeout"`
}

// VectorConfig configures the catalog embedding index.
type VectorConfig struct {
	Index       string `yaml:"index" json:"index"` // exact, hnsw
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir"`
	M           int    `yaml:"m" json:"m"`
	EfSearch    int    `yaml:"ef_search" json:"ef_search"`
}

// FullTextConfig configures the optional keyword search backend.
type FullTextConfig struct {
	Provider      string  `yaml:"provider" json:"provider"` // bleve, elasticsearch, none
	URL           string  `yaml:"url" json:"url"`
	Index         string  `yaml:"index" json:"index"`
	Timeout       string  `yaml:"timeout" json:"timeout"`
	Workers       int     `yaml:"workers" json:"workers"`
	Size          int     `yaml:"size" json:"size"`
	ScoreDivisor  float64 `yaml:"score_divisor" json:"score_divisor"`
	MaxFailures   int     `yaml:"max_failures" json:"max_failures"`
	RetryInterval string  `yaml:"retry_interval" json:"retry_interval"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"` // stdio, http
	Addr      string `yaml:"addr" json:"addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// TelemetryConfig configures the local query log.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			DefaultLimit:     10,
			DefaultThreshold: 0.6,
			MaxLimit:         100,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Dimensions: 256,
			CacheSize:  1000,
			Timeout:    "30s",
		},
		Vector: VectorConfig{
			Index:    "exact",
			M:        16,
			EfSearch: 64,
		},
		FullText: FullTextConfig{
			Provider:      "bleve",
			URL:           "http://localhost:9200",
			Index:         "categories",
			Timeout:       "2s",
			Workers:       4,
			Size:          20,
			ScoreDivisor:  10,
			MaxFailures:   3,
			RetryInterval: "30s",
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      "127.0.0.1:8000",
			LogLevel:  "info",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Path:    filepath.Join(DataDir(), "telemetry.db"),
		},
	}
}

// DataDir returns ~/.catmatch, the home of logs, snapshots and the query log.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".catmatch")
	}
	return filepath.Join(home, ".catmatch")
}

// GetUserConfigPath returns the path to the user configuration file,
// following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "catmatch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "catmatch", "config.yaml")
	}
	return filepath.Join(home, ".config", "catmatch", "config.yaml")
}

// ProjectConfigPath returns the project config file inside dir, preferring
// .catmatch.yaml over .catmatch.yml. Empty when neither exists.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".catmatch.yaml", ".catmatch.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// Load loads configuration for the given working directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if p := GetUserConfigPath(); fileExists(p) {
		if err := cfg.loadYAML(p); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if p := ProjectConfigPath(dir); p != "" {
		if err := cfg.loadYAML(p); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single explicit file, then env.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML overlays the file onto c. Keys absent from the file keep their
// current values, so booleans can be switched off explicitly.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	parsed := *c
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	*c = parsed
	return nil
}

// applyEnvOverrides applies CATMATCH_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CATMATCH_CATALOG"); v != "" {
		c.Catalog.Path = v
	}

	if v := os.Getenv("CATMATCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("CATMATCH_DEFAULT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 && f <= 1 {
			c.Search.DefaultThreshold = f
		}
	}

	if v := os.Getenv("CATMATCH_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CATMATCH_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CATMATCH_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("CATMATCH_OPENAI_BASE_URL"); v != "" {
		c.Embeddings.OpenAIBaseURL = v
	}
	if v := os.Getenv("CATMATCH_OPENAI_TOKEN"); v != "" {
		c.Embeddings.OpenAIToken = v
	}

	if v := os.Getenv("CATMATCH_VECTOR_INDEX"); v != "" {
		c.Vector.Index = v
	}
	if v := os.Getenv("CATMATCH_SNAPSHOT_DIR"); v != "" {
		c.Vector.SnapshotDir = v
	}

	if v := os.Getenv("CATMATCH_FULLTEXT_PROVIDER"); v != "" {
		c.FullText.Provider = v
	}
	// ELASTICSEARCH_URL is what the reference deployment's compose file sets
	if v := os.Getenv("ELASTICSEARCH_URL"); v != "" {
		c.FullText.URL = v
	}
	if v := os.Getenv("CATMATCH_FULLTEXT_URL"); v != "" {
		c.FullText.URL = v
	}
	if v := os.Getenv("CATMATCH_FULLTEXT_TIMEOUT"); v != "" {
		c.FullText.Timeout = v
	}

	if v := os.Getenv("CATMATCH_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CATMATCH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CATMATCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}

	if v := os.Getenv("CATMATCH_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("CATMATCH_TELEMETRY_PATH"); v != "" {
		c.Telemetry.Path = v
	}
}

// expandPaths resolves a leading ~/ in file system settings.
func (c *Config) expandPaths() {
	c.Catalog.Path = ExpandHome(c.Catalog.Path)
	c.Vector.SnapshotDir = ExpandHome(c.Vector.SnapshotDir)
	c.Telemetry.Path = ExpandHome(c.Telemetry.Path)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("search.default_limit must be non-negative, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < 0 {
		return fmt.Errorf("search.max_limit must be non-negative, got %d", c.Search.MaxLimit)
	}
	if c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("search.default_threshold must be between 0 and 1, got %f", c.Search.DefaultThreshold)
	}

	if err := oneOf("embeddings.provider", c.Embeddings.Provider, "static", "ollama", "openai"); err != nil {
		return err
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	if err := oneOf("vector.index", c.Vector.Index, "exact", "hnsw"); err != nil {
		return err
	}
	if err := oneOf("fulltext.provider", c.FullText.Provider, "bleve", "elasticsearch", "none"); err != nil {
		return err
	}
	if c.FullText.ScoreDivisor <= 0 {
		return fmt.Errorf("fulltext.score_divisor must be positive, got %f", c.FullText.ScoreDivisor)
	}
	if c.FullText.Size <= 0 {
		return fmt.Errorf("fulltext.size must be positive, got %d", c.FullText.Size)
	}
	for name, v := range map[string]string{
		"embeddings.timeout":      c.Embeddings.Timeout,
		"fulltext.timeout":        c.FullText.Timeout,
		"fulltext.retry_interval": c.FullText.RetryInterval,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if err := oneOf("server.transport", c.Server.Transport, "stdio", "http"); err != nil {
		return err
	}
	if err := oneOf("server.log_level", c.Server.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

// TimeoutDuration returns the parsed full-text call timeout.
func (f FullTextConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(f.Timeout)
	return d
}

// RetryIntervalDuration returns how long the full-text circuit stays open.
func (f FullTextConfig) RetryIntervalDuration() time.Duration {
	d, _ := parseDuration(f.RetryInterval)
	return d
}

// TimeoutDuration returns the parsed embedding request timeout.
func (e EmbeddingsConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(e.Timeout)
	return d
}

// parseDuration accepts Go duration strings; empty and "0" mean disabled.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
