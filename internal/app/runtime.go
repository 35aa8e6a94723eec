// Package app assembles the search runtime from configuration. A Runtime is
// built once per process and shared by the CLI, HTTP and MCP surfaces.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/config"
	"github.com/Aman-CERP/catmatch/internal/embed"
	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
	"github.com/Aman-CERP/catmatch/internal/fulltext"
	"github.com/Aman-CERP/catmatch/internal/search"
	"github.com/Aman-CERP/catmatch/internal/store"
	"github.com/Aman-CERP/catmatch/internal/telemetry"
	"github.com/Aman-CERP/catmatch/pkg/version"
)

// Runtime owns every long-lived component.
type Runtime struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	embedder embed.Embedder
	matrix   *store.MatrixHandle
	fulltext *fulltext.Adapter
	queryLog *telemetry.QueryLog
	engine   *search.Engine
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Option configures New.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	embedder embed.Embedder
	backend  fulltext.Backend
	catalog  *catalog.Catalog
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEmbedder overrides the configured embedding provider.
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithBackend overrides the configured full-text backend.
func WithBackend(b fulltext.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithCatalog overrides the configured catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// New builds the runtime. Only catalog and configuration errors are fatal;
// a missing embedder, matrix or full-text backend degrades the matching
// stage and is reported by Health.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, caterrors.ConfigError("invalid configuration", err)
	}

	cat := o.catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}
	o.logger.Info("catalog_loaded",
		slog.Int("categories", cat.NumCategories()),
		slog.Int("entries", cat.Len()))

	rt := &Runtime{cfg: cfg, catalog: cat, logger: o.logger}

	engineOpts := []search.EngineOption{
		search.WithLogger(o.logger),
		search.WithMaxLimit(cfg.Search.MaxLimit),
	}

	rt.embedder = o.embedder
	if rt.embedder == nil {
		e, err := embed.NewEmbedder(ctx, EmbedderOptions(cfg.Embeddings))
		if err != nil {
			o.logger.Error("embedder_unavailable",
				slog.String("provider", cfg.Embeddings.Provider),
				slog.String("error", err.Error()))
		} else {
			rt.embedder = e
		}
	}

	if rt.embedder != nil {
		enc := rt.embedder
		buildOpts := store.BuildOptions{
			Index:       strings.ToLower(cfg.Vector.Index),
			HNSW:        store.HNSWConfig{M: cfg.Vector.M, EfSearch: cfg.Vector.EfSearch},
			SnapshotDir: cfg.Vector.SnapshotDir,
			Logger:      o.logger,
		}
		rt.matrix = store.NewMatrixHandle(func(ctx context.Context) (store.Index, error) {
			return store.Build(ctx, enc, cat.Documents(), buildOpts)
		})
		if _, err := rt.matrix.Get(ctx); err != nil {
			o.logger.Error("matrix_build_failed", slog.String("error", err.Error()))
		}
		engineOpts = append(engineOpts, search.WithSemantic(enc, rt.matrix))
	}

	backend := o.backend
	if backend == nil {
		backend = newBackend(cfg.FullText)
	}
	rt.fulltext = fulltext.NewAdapter(backend, fulltext.Options{
		Timeout:       cfg.FullText.TimeoutDuration(),
		Size:          cfg.FullText.Size,
		ScoreDivisor:  cfg.FullText.ScoreDivisor,
		MaxFailures:   cfg.FullText.MaxFailures,
		RetryInterval: cfg.FullText.RetryIntervalDuration(),
		Logger:        o.logger,
	})
	_ = rt.fulltext.Init(ctx, fulltext.DocumentsFromCatalog(cat.Entries()))
	engineOpts = append(engineOpts, search.WithFullText(rt.fulltext))

	if cfg.Telemetry.Enabled {
		var st telemetry.Store
		if s, err := telemetry.OpenSQLiteStore(cfg.Telemetry.Path); err != nil {
			o.logger.Warn("query_log_unavailable", slog.String("error", err.Error()))
		} else {
			st = s
		}
		rt.queryLog = telemetry.NewQueryLog(st, telemetry.DefaultConfig(), o.logger)
		engineOpts = append(engineOpts, search.WithRecorder(rt.queryLog))
	}

	engine, err := search.NewEngine(cat, engineOpts...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.engine = engine
	return rt, nil
}

// EmbedderOptions maps the embeddings section onto embedder options.
func EmbedderOptions(cfg config.EmbeddingsConfig) embed.Options {
	return embed.Options{
		Provider:      embed.ParseProvider(cfg.Provider),
		Model:         cfg.Model,
		Dimensions:    cfg.Dimensions,
		OllamaHost:    cfg.OllamaHost,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIToken:   cfg.OpenAIToken,
		Timeout:       cfg.TimeoutDuration(),
		CacheSize:     cfg.CacheSize,
	}
}

func newBackend(cfg config.FullTextConfig) fulltext.Backend {
	switch strings.ToLower(cfg.Provider) {
	case "elasticsearch":
		return fulltext.NewElasticBackend(fulltext.ElasticConfig{
			URL:     cfg.URL,
			Index:   cfg.Index,
			Timeout: cfg.TimeoutDuration(),
			Workers: cfg.Workers,
		})
	case "none":
		return nil
	default:
		return fulltext.NewBleveBackend()
	}
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// Engine returns the search engine.
func (r *Runtime) Engine() *search.Engine {
	return r.engine
}

// NewRequest returns a request with the configured defaults.
func (r *Runtime) NewRequest(query string) search.Request {
	return search.Request{
		Query:     query,
		Limit:     r.cfg.Search.DefaultLimit,
		Threshold: r.cfg.Search.DefaultThreshold,
	}
}

// Search runs a hybrid search.
func (r *Runtime) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	return r.engine.Search(ctx, req)
}

// Categories returns the catalog tree.
func (r *Runtime) Categories() catalog.TreeView {
	return r.engine.Categories()
}

// Health reports component status.
func (r *Runtime) Health(ctx context.Context) search.HealthReport {
	return r.engine.Health(ctx)
}

// Stats is the combined catalog, model and query log view.
type Stats struct {
	TotalCategories    int                 `json:"total_categories"`
	TotalSubcategories int                 `json:"total_subcategories"`
	ModelName          string              `json:"model_name"`
	EmbeddingProvider  string              `json:"embedding_provider"`
	FulltextBackend    string              `json:"fulltext_backend"`
	FulltextAvailable  bool                `json:"fulltext_available"`
	SupportedMethods   []string            `json:"supported_methods"`
	TotalSearches      int64               `json:"total_searches"`
	Searches           *telemetry.Snapshot `json:"searches,omitempty"`
	Version            string              `json:"version"`
}

// Stats collects runtime statistics.
func (r *Runtime) Stats(ctx context.Context) (*Stats, error) {
	tree := r.catalog.Tree()
	st := &Stats{
		TotalCategories:    tree.TotalCategories,
		TotalSubcategories: tree.TotalSubcategories,
		ModelName:          "none",
		EmbeddingProvider:  "none",
		FulltextBackend:    r.fulltext.BackendName(),
		FulltextAvailable:  r.engine.FullTextAvailable(),
		SupportedMethods:   r.engine.SupportedMethods(),
		Version:            version.Version,
	}
	if r.embedder != nil {
		info := embed.GetInfo(ctx, r.embedder)
		st.ModelName = info.Model
		st.EmbeddingProvider = info.Provider
	}

	if r.queryLog != nil {
		snap, err := r.queryLog.Stats(ctx)
		if err != nil {
			return nil, err
		}
		st.Searches = snap
		st.TotalSearches = snap.TotalSearches
	}
	return st, nil
}

// Close releases every component. It waits at most five seconds for the
// query log to drain. Safe to call more than once.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.close()
	})
	return r.closeErr
}

func (r *Runtime) close() error {
	var errs []error
	if r.queryLog != nil {
		done := make(chan error, 1)
		go func() { done <- r.queryLog.Close() }()
		select {
		case err := <-done:
			errs = append(errs, err)
		case <-time.After(5 * time.Second):
			r.logger.Warn("query_log_close_timeout")
		}
	}
	if r.fulltext != nil {
		errs = append(errs, r.fulltext.Close())
	}
	if r.embedder != nil {
		errs = append(errs, r.embedder.Close())
	}
	return errors.Join(errs...)
}
