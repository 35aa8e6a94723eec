package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// Snapshot persists catalog embeddings in badger, keyed by model name and
// a hash of the embedded text, so unchanged entries are not re-encoded.
type Snapshot struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...), slog.String("component", "badger"))
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...), slog.String("component", "badger"))
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...), slog.String("component", "badger"))
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...), slog.String("component", "badger"))
}

// OpenSnapshot opens (or creates) the snapshot database in dir. An empty
// dir opens an in-memory snapshot.
func OpenSnapshot(dir string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, caterrors.IOError("failed to create snapshot directory", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, caterrors.IOError("failed to open embedding snapshot", err).
			WithDetail("dir", dir)
	}
	return &Snapshot{db: db}, nil
}

func snapshotKey(model, doc string) []byte {
	sum := sha256.Sum256([]byte(doc))
	return []byte("emb/" + model + "/" + hex.EncodeToString(sum[:]))
}

// Lookup returns the stored vector of every doc, nil where missing.
func (s *Snapshot) Lookup(model string, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	err := s.db.View(func(txn *badger.Txn) error {
		for i, doc := range docs {
			item, err := txn.Get(snapshotKey(model, doc))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vec, err := decodeVector(raw)
			if err != nil {
				return caterrors.New(caterrors.ErrCodeSnapshotCorrupt, "corrupt snapshot value", err)
			}
			out[i] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Store writes vectors for docs in one transaction batch.
func (s *Snapshot) Store(model string, docs []string, vecs [][]float32) error {
	if len(docs) != len(vecs) {
		return fmt.Errorf("snapshot store: %d docs, %d vectors", len(docs), len(vecs))
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, doc := range docs {
		if err := wb.Set(snapshotKey(model, doc), encodeVector(vecs[i])); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Close closes the database.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("vector payload of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
