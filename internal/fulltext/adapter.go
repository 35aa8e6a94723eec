package fulltext

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// Adapter defaults.
const (
	DefaultTimeout       = 2 * time.Second
	DefaultSize          = 20
	DefaultScoreDivisor  = 10.0
	DefaultMaxFailures   = 3
	DefaultRetryInterval = 30 * time.Second
)

// Options configures an Adapter.
type Options struct {
	Timeout       time.Duration
	Size          int
	ScoreDivisor  float64
	MaxFailures   int
	RetryInterval time.Duration
	Fields        []WeightedField
	Logger        *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.ScoreDivisor <= 0 {
		o.ScoreDivisor = DefaultScoreDivisor
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	if len(o.Fields) == 0 {
		o.Fields = DefaultFields
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Adapter wraps an optional Backend. It is available only after a
// successful Init, and drops out while its circuit breaker is open.
// Search never fails the caller: problems yield an empty hit list.
type Adapter struct {
	backend Backend
	opts    Options
	breaker *caterrors.CircuitBreaker
	ready   atomic.Bool
}

// NewAdapter wraps backend. A nil backend gives a permanently unavailable
// adapter.
func NewAdapter(backend Backend, opts Options) *Adapter {
	opts.applyDefaults()
	return &Adapter{
		backend: backend,
		opts:    opts,
		breaker: caterrors.NewCircuitBreaker("fulltext",
			caterrors.WithMaxFailures(opts.MaxFailures),
			caterrors.WithResetTimeout(opts.RetryInterval)),
	}
}

// Init probes the backend and, if it answers, indexes docs. On any failure
// the adapter stays unavailable for its lifetime; the error is returned for
// logging only.
func (a *Adapter) Init(ctx context.Context, docs []Document) error {
	if a.backend == nil {
		return nil
	}
	logger := a.opts.Logger.With(slog.String("backend", a.backend.Name()))

	pingCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	err := a.backend.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Warn("fulltext_unavailable", slog.String("error", err.Error()))
		return err
	}

	start := time.Now()
	if err := a.backend.IndexDocuments(ctx, docs); err != nil {
		logger.Error("fulltext_index_failed", slog.String("error", err.Error()))
		return err
	}

	a.ready.Store(true)
	logger.Info("fulltext_ready",
		slog.Int("documents", len(docs)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Available reports whether queries are currently sent to the backend.
func (a *Adapter) Available() bool {
	return a.ready.Load() && a.breaker.Allow()
}

// BackendName returns the backend name, or "none".
func (a *Adapter) BackendName() string {
	if a.backend == nil {
		return "none"
	}
	return a.backend.Name()
}

// Search returns normalized hits: score = raw / divisor, clamped to 1.
// When the backend is unavailable it returns no hits and no error. A failed
// call returns no hits and the cause, which callers log and drop.
func (a *Adapter) Search(ctx context.Context, text string) ([]Hit, error) {
	if !a.Available() || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	raw, err := a.backend.MultiMatch(callCtx, text, a.opts.Fields, FuzzinessAuto, a.opts.Size)
	if err != nil {
		// A request abandoned by its caller says nothing about the backend.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.breaker.RecordFailure()
		if a.breaker.State() == caterrors.StateOpen {
			a.opts.Logger.Warn("fulltext_unavailable",
				slog.String("backend", a.backend.Name()),
				slog.String("error", err.Error()))
		}
		return nil, caterrors.BackendUnavailable(a.backend.Name(), err)
	}
	a.breaker.RecordSuccess()

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		score := h.Score / a.opts.ScoreDivisor
		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}
		hits = append(hits, Hit{FullName: h.FullName, Score: score})
	}
	return hits, nil
}

// Close closes the backend.
func (a *Adapter) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
