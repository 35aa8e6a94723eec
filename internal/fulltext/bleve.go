package fulltext

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveBackend is an embedded in-memory index with the Russian analyzer.
type BleveBackend struct {
	mu    sync.RWMutex
	index bleve.Index
}

var _ Backend = (*BleveBackend)(nil)

// NewBleveBackend returns an empty backend. IndexDocuments builds the index.
func NewBleveBackend() *BleveBackend {
	return &BleveBackend{}
}

// Name returns "bleve".
func (b *BleveBackend) Name() string {
	return "bleve"
}

// Ping always succeeds: the index lives in process.
func (b *BleveBackend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// IndexDocuments replaces the index with one built from docs.
func (b *BleveBackend) IndexDocuments(ctx context.Context, docs []Document) error {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = ru.AnalyzerName
	textField.Store = false
	textField.IncludeTermVectors = false

	docMapping := bleve.NewDocumentMapping()
	for _, name := range []string{FieldCategory, FieldSubcategory, FieldSynonyms, FieldFullName} {
		docMapping.AddFieldMappingsAt(name, textField)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = ru.AnalyzerName

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return fmt.Errorf("failed to create bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return err
		}
		fields := map[string]interface{}{
			FieldCategory:    doc.Category,
			FieldSubcategory: doc.Subcategory,
			FieldSynonyms:    doc.Synonyms,
			FieldFullName:    doc.FullName,
		}
		if err := batch.Index(doc.FullName, fields); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to index %q: %w", doc.FullName, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to commit bleve batch: %w", err)
	}

	b.mu.Lock()
	old := b.index
	b.index = idx
	b.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// MultiMatch ORs one fuzzy match query per boosted field.
func (b *BleveBackend) MultiMatch(ctx context.Context, text string, fields []WeightedField, fuzziness string, size int) ([]Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.index == nil {
		return nil, fmt.Errorf("bleve index is not built")
	}

	fuzz := resolveFuzziness(text, fuzziness)
	queries := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(f.Name)
		mq.SetFuzziness(fuzz)
		if f.Boost > 0 {
			mq.SetBoost(f.Boost)
		}
		queries = append(queries, mq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), size, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{FullName: h.ID, Score: h.Score})
	}
	sortHits(hits)
	return hits, nil
}

// Close releases the index.
func (b *BleveBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index == nil {
		return nil
	}
	err := b.index.Close()
	b.index = nil
	return err
}
