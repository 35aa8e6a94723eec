package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/catmatch/internal/catalog"
	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
	"github.com/Aman-CERP/catmatch/internal/fulltext"
	"github.com/Aman-CERP/catmatch/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// errSemanticDisabled marks a semantic stage with no embedder configured.
var errSemanticDisabled = errors.New("semantic search is disabled")

// QueryEncoder embeds a query. embed.Embedder satisfies it.
type QueryEncoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSource yields the catalog vector index. store.MatrixHandle
// satisfies it.
type VectorSource interface {
	Get(ctx context.Context) (store.Index, error)
}

// FullTextSearcher is the optional keyword stage. fulltext.Adapter
// satisfies it.
type FullTextSearcher interface {
	Search(ctx context.Context, text string) ([]fulltext.Hit, error)
	Available() bool
}

// Recorder receives every completed search. Implementations must not block.
type Recorder interface {
	RecordSearch(ctx context.Context, resp *Response)
}

// Engine is the hybrid search orchestrator. It is safe for concurrent use:
// everything it holds is read-only after construction.
type Engine struct {
	catalog  *catalog.Catalog
	matcher  *Matcher
	encoder  QueryEncoder
	vectors  VectorSource
	fulltext FullTextSearcher
	recorder Recorder
	maxLimit int
	logger   *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithSemantic enables the semantic stage.
func WithSemantic(enc QueryEncoder, vectors VectorSource) EngineOption {
	return func(e *Engine) {
		e.encoder = enc
		e.vectors = vectors
	}
}

// WithFullText enables the full-text stage.
func WithFullText(ft FullTextSearcher) EngineOption {
	return func(e *Engine) {
		e.fulltext = ft
	}
}

// WithRecorder sets a sink for completed searches.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithMaxLimit caps Request.Limit. Zero means no cap.
func WithMaxLimit(n int) EngineOption {
	return func(e *Engine) {
		e.maxLimit = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over cat. Only the lexical stage is on by
// default.
func NewEngine(cat *catalog.Catalog, opts ...EngineOption) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog: %w", ErrNilDependency)
	}

	e := &Engine{
		catalog: cat,
		matcher: NewMatcher(cat),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Validate checks a request before any stage runs.
func (e *Engine) Validate(req Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return caterrors.New(caterrors.ErrCodeQueryEmpty, "query must not be empty", nil).
			WithSuggestion("pass a product or category name, e.g. \"кафель\"")
	}
	if req.Limit < 0 {
		return caterrors.RequestError(fmt.Sprintf("limit must be >= 0, got %d", req.Limit))
	}
	if math.IsNaN(req.Threshold) || req.Threshold < 0 || req.Threshold > 1 {
		return caterrors.RequestError(fmt.Sprintf("threshold must be within [0, 1], got %g", req.Threshold))
	}
	return nil
}

// Search runs every stage concurrently and merges their hits. Only an
// invalid request fails; a failing stage just contributes nothing.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if err := e.Validate(req); err != nil {
		return nil, err
	}

	limit := req.Limit
	if e.maxLimit > 0 && limit > e.maxLimit {
		limit = e.maxLimit
	}

	e.logger.Debug("search_started",
		slog.String("query", req.Query),
		slog.Float64("threshold", req.Threshold),
		slog.Int("limit", limit))

	stages := e.runStages(ctx, req)
	for _, s := range stages {
		if s.Err != nil && !errors.Is(s.Err, errSemanticDisabled) {
			e.logger.Warn("stage_failed",
				slog.String("stage", string(s.Stage)),
				slog.String("query", req.Query),
				slog.String("error", s.Err.Error()))
		}
	}

	results := e.merge(stages)
	if len(results) > limit {
		results = results[:limit]
	}

	resp := &Response{
		Query:          req.Query,
		Results:        results,
		Total:          len(results),
		ProcessingTime: time.Since(start).Seconds(),
	}

	e.logger.Info("search_completed",
		slog.String("query", req.Query),
		slog.Float64("threshold", req.Threshold),
		slog.Int("limit", limit),
		slog.Int("lexical", len(stages[0].Hits)),
		slog.Int("fulltext", len(stages[1].Hits)),
		slog.Int("semantic", len(stages[2].Hits)),
		slog.Int("total", resp.Total),
		slog.Duration("elapsed", time.Since(start)))

	if e.recorder != nil {
		e.recorder.RecordSearch(ctx, resp)
	}
	return resp, nil
}

// runStages returns lexical, fulltext and semantic results, in that order.
func (e *Engine) runStages(ctx context.Context, req Request) [3]StageResult {
	var stages [3]StageResult
	g, gctx := errgroup.WithContext(ctx)

	run := func(i int, stage Stage, fn func(context.Context) ([]Hit, error)) {
		g.Go(func() error {
			t := time.Now()
			hits, err := fn(gctx)
			if err != nil {
				hits = nil
			}
			stages[i] = StageResult{Stage: stage, Hits: hits, Err: err, Elapsed: time.Since(t)}
			return nil
		})
	}

	run(0, StageLexical, func(context.Context) ([]Hit, error) {
		return e.matcher.Match(req.Query), nil
	})
	run(1, StageFulltext, func(ctx context.Context) ([]Hit, error) {
		return e.searchFullText(ctx, req.Query)
	})
	run(2, StageSemantic, func(ctx context.Context) ([]Hit, error) {
		return e.searchSemantic(ctx, req.Query, req.Threshold)
	})

	_ = g.Wait()
	return stages
}

func (e *Engine) searchFullText(ctx context.Context, query string) ([]Hit, error) {
	if e.fulltext == nil || !e.fulltext.Available() {
		return nil, nil
	}
	raw, err := e.fulltext.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(raw))
	for i, h := range raw {
		hits[i] = Hit{FullName: h.FullName, Score: h.Score, Method: MethodFulltext}
	}
	return hits, nil
}

func (e *Engine) searchSemantic(ctx context.Context, query string, threshold float64) ([]Hit, error) {
	if e.encoder == nil || e.vectors == nil {
		return nil, errSemanticDisabled
	}

	idx, err := e.vectors.Get(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := e.encoder.Embed(ctx, query)
	if err != nil {
		return nil, caterrors.EmbeddingError("failed to embed query", err)
	}
	matches, err := idx.Search(vec, threshold)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		if m.Index < 0 || m.Index >= e.catalog.Len() {
			continue
		}
		hits = append(hits, Hit{
			FullName: e.catalog.Entry(m.Index).FullName,
			Score:    m.Score,
			Method:   MethodSemantic,
		})
	}
	return hits, nil
}

// merge concatenates stage hits in stage order, keeps the first hit per
// full name and sorts by score, then method priority.
func (e *Engine) merge(stages [3]StageResult) []SearchResult {
	seen := make(map[string]struct{})
	results := make([]SearchResult, 0)

	for _, s := range stages {
		for _, h := range s.Hits {
			if _, dup := seen[h.FullName]; dup {
				continue
			}
			entry, ok := e.catalog.Lookup(h.FullName)
			if !ok {
				e.logger.Debug("unknown_full_name",
					slog.String("stage", string(s.Stage)),
					slog.String("full_name", h.FullName))
				continue
			}
			seen[h.FullName] = struct{}{}
			results = append(results, SearchResult{
				Category:      entry.CategoryName,
				Subcategory:   entry.SubcategoryName,
				Score:         clamp01(h.Score),
				Method:        h.Method,
				CategoryID:    entry.CategoryID,
				SubcategoryID: entry.SubcategoryID,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Method < results[j].Method
	})
	return results
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Categories returns the catalog tree.
func (e *Engine) Categories() catalog.TreeView {
	return e.catalog.Tree()
}

// Catalog returns the underlying catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Health reports the model as ok when the vector index is built, and the
// full-text backend as ok while it accepts queries.
func (e *Engine) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Components: HealthComponents{
			Model:           StatusOK,
			FulltextBackend: StatusUnavailable,
			Categories:      e.catalog.Len(),
		},
	}

	if e.encoder == nil || e.vectors == nil {
		report.Components.Model = StatusError
	} else if _, err := e.vectors.Get(ctx); err != nil {
		report.Components.Model = StatusError
	}
	if report.Components.Model != StatusOK {
		report.Status = StatusDegraded
	}

	if e.fulltext != nil && e.fulltext.Available() {
		report.Components.FulltextBackend = StatusOK
	}
	return report
}

// FullTextAvailable reports whether the full-text stage is live.
func (e *Engine) FullTextAvailable() bool {
	return e.fulltext != nil && e.fulltext.Available()
}

// SupportedMethods lists the methods the engine can currently produce.
func (e *Engine) SupportedMethods() []string {
	methods := []string{MethodExact.String(), MethodSynonym.String()}
	if e.encoder != nil && e.vectors != nil {
		methods = append(methods, MethodSemantic.String())
	}
	if e.FullTextAvailable() {
		methods = append(methods, MethodFulltext.String())
	}
	return methods
}
