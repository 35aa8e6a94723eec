package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// Index kinds.
const (
	IndexExact = "exact"
	IndexHNSW  = "hnsw"
)

// Encoder produces embeddings for documents. embed.Embedder satisfies it.
type Encoder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// BuildOptions controls how the catalog matrix is built.
type BuildOptions struct {
	// Index is IndexExact (default) or IndexHNSW.
	Index string
	HNSW  HNSWConfig
	// SnapshotDir enables the on-disk embedding snapshot. Empty disables it.
	SnapshotDir string
	Logger      *slog.Logger
}

// Build encodes docs and returns a searchable index. Vectors present in the
// snapshot are reused; missing ones are encoded and written back.
func Build(ctx context.Context, enc Encoder, docs []string, opts BuildOptions) (Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(docs) == 0 {
		return nil, caterrors.New(caterrors.ErrCodeIndexFailed, "no documents to index", nil)
	}

	start := time.Now()
	vecs, reused, err := encodeWithSnapshot(ctx, enc, docs, opts.SnapshotDir, logger)
	if err != nil {
		return nil, err
	}

	matrix, err := NewMatrix(vecs)
	if err != nil {
		return nil, err
	}

	var idx Index = matrix
	switch opts.Index {
	case "", IndexExact:
	case IndexHNSW:
		idx = NewHNSWIndex(matrix, opts.HNSW)
	default:
		return nil, caterrors.ConfigError(fmt.Sprintf("unknown vector index %q", opts.Index), nil)
	}

	logger.Info("matrix_built",
		slog.String("model", enc.ModelName()),
		slog.String("index", kindOf(opts.Index)),
		slog.Int("rows", matrix.Len()),
		slog.Int("dimensions", matrix.Dimensions()),
		slog.Int("reused", reused),
		slog.Duration("elapsed", time.Since(start)))

	return idx, nil
}

func kindOf(index string) string {
	if index == "" {
		return IndexExact
	}
	return index
}

func encodeWithSnapshot(ctx context.Context, enc Encoder, docs []string, dir string, logger *slog.Logger) ([][]float32, int, error) {
	if dir == "" {
		vecs, err := encode(ctx, enc, docs)
		return vecs, 0, err
	}

	lock := NewFileLock(dir)
	if err := lock.Lock(ctx); err != nil {
		return nil, 0, caterrors.IOError("failed to lock snapshot", err)
	}
	defer func() { _ = lock.Unlock() }()

	snap, err := OpenSnapshot(dir, logger)
	if err != nil {
		logger.Warn("snapshot_unavailable", slog.String("error", err.Error()))
		vecs, err := encode(ctx, enc, docs)
		return vecs, 0, err
	}
	defer func() { _ = snap.Close() }()

	model := enc.ModelName()
	vecs, err := snap.Lookup(model, docs)
	if err != nil {
		logger.Warn("snapshot_read_failed", slog.String("error", err.Error()))
		vecs = make([][]float32, len(docs))
	}

	var missIdx []int
	var missDocs []string
	for i, v := range vecs {
		if v == nil {
			missIdx = append(missIdx, i)
			missDocs = append(missDocs, docs[i])
		}
	}
	reused := len(docs) - len(missDocs)
	if len(missDocs) == 0 {
		return vecs, reused, nil
	}

	fresh, err := encode(ctx, enc, missDocs)
	if err != nil {
		return nil, 0, err
	}
	for j, i := range missIdx {
		vecs[i] = fresh[j]
	}
	if err := snap.Store(model, missDocs, fresh); err != nil {
		logger.Warn("snapshot_write_failed", slog.String("error", err.Error()))
	}
	return vecs, reused, nil
}

func encode(ctx context.Context, enc Encoder, docs []string) ([][]float32, error) {
	vecs, err := enc.EmbedBatch(ctx, docs)
	if err != nil {
		return nil, caterrors.EmbeddingError("failed to encode catalog", err)
	}
	if len(vecs) != len(docs) {
		return nil, caterrors.EmbeddingError(
			fmt.Sprintf("encoder returned %d vectors for %d documents", len(vecs), len(docs)), nil)
	}
	return vecs, nil
}

// MatrixHandle builds the index at most once, on first use, and shares the
// outcome (including a failure) with every caller.
type MatrixHandle struct {
	once  sync.Once
	build func(ctx context.Context) (Index, error)
	idx   Index
	err   error
}

// NewMatrixHandle wraps a build function.
func NewMatrixHandle(build func(ctx context.Context) (Index, error)) *MatrixHandle {
	return &MatrixHandle{build: build}
}

// Get returns the index, building it if this is the first call.
func (h *MatrixHandle) Get(ctx context.Context) (Index, error) {
	h.once.Do(func() {
		h.idx, h.err = h.build(ctx)
	})
	return h.idx, h.err
}
