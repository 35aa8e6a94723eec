package fulltext

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"resty.dev/v3"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

const (
	// DefaultElasticURL is the default Elasticsearch endpoint.
	DefaultElasticURL = "http://localhost:9200"

	// DefaultElasticIndex is the default index name.
	DefaultElasticIndex = "categories"
)

// ElasticConfig configures the Elasticsearch backend.
type ElasticConfig struct {
	URL     string
	Index   string
	Timeout time.Duration
	// Workers bounds concurrent document uploads.
	Workers int
	Retry   caterrors.RetryConfig
}

// ElasticBackend talks to Elasticsearch over its REST API.
type ElasticBackend struct {
	client *resty.Client
	cfg    ElasticConfig
}

var _ Backend = (*ElasticBackend)(nil)

// russianAnalyzer is the index body: a custom analyzer with lowercase,
// Russian stop words and the Russian stemmer on every text field.
var russianAnalyzer = map[string]any{
	"settings": map[string]any{
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"russian_analyzer": map[string]any{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "russian_stop", "russian_stemmer"},
				},
			},
			"filter": map[string]any{
				"russian_stop":    map[string]any{"type": "stop", "stopwords": "_russian_"},
				"russian_stemmer": map[string]any{"type": "stemmer", "language": "russian"},
			},
		},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			FieldCategory:    map[string]any{"type": "text", "analyzer": "russian_analyzer"},
			FieldSubcategory: map[string]any{"type": "text", "analyzer": "russian_analyzer"},
			FieldSynonyms:    map[string]any{"type": "text", "analyzer": "russian_analyzer"},
			FieldFullName:    map[string]any{"type": "text", "analyzer": "russian_analyzer"},
		},
	},
}

type multiMatchQuery struct {
	Query     string   `json:"query"`
	Fields    []string `json:"fields"`
	Type      string   `json:"type"`
	Fuzziness string   `json:"fuzziness"`
}

type searchBody struct {
	Query struct {
		MultiMatch multiMatchQuery `json:"multi_match"`
	} `json:"query"`
	Size int `json:"size"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64  `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// NewElasticBackend creates a client. No request is made until Ping.
func NewElasticBackend(cfg ElasticConfig) *ElasticBackend {
	if cfg.URL == "" {
		cfg.URL = DefaultElasticURL
	}
	if cfg.Index == "" {
		cfg.Index = DefaultElasticIndex
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = caterrors.DefaultRetryConfig()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &ElasticBackend{client: client, cfg: cfg}
}

// Name returns "elasticsearch".
func (e *ElasticBackend) Name() string {
	return "elasticsearch"
}

// Ping checks the cluster root endpoint.
func (e *ElasticBackend) Ping(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return caterrors.BackendUnavailable(e.Name(), err)
	}
	if resp.IsError() {
		return caterrors.BackendUnavailable(e.Name(), fmt.Errorf("HTTP %d", resp.StatusCode()))
	}
	return nil
}

// IndexDocuments drops and recreates the index, uploads docs through a
// worker pool and refreshes the index so they are searchable.
func (e *ElasticBackend) IndexDocuments(ctx context.Context, docs []Document) error {
	err := caterrors.Retry(ctx, e.cfg.Retry, func() error {
		return e.recreateIndex(ctx)
	})
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(e.cfg.Workers)
	if err != nil {
		return fmt.Errorf("failed to create indexing pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := e.indexDocument(ctx, doc); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("failed to submit indexing task: %w", submitErr)
		}
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	return e.expect(e.client.R().SetContext(ctx).Post("/" + e.cfg.Index + "/_refresh"))
}

func (e *ElasticBackend) recreateIndex(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Delete("/" + e.cfg.Index)
	if err != nil {
		return caterrors.BackendUnavailable(e.Name(), err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return e.statusError(resp)
	}

	return e.expect(e.client.R().SetContext(ctx).SetBody(russianAnalyzer).Put("/" + e.cfg.Index))
}

func (e *ElasticBackend) indexDocument(ctx context.Context, doc Document) error {
	return e.expect(e.client.R().SetContext(ctx).SetBody(doc).Post("/" + e.cfg.Index + "/_doc"))
}

// MultiMatch runs a best_fields multi_match query.
func (e *ElasticBackend) MultiMatch(ctx context.Context, text string, fields []WeightedField, fuzziness string, size int) ([]Hit, error) {
	var body searchBody
	body.Query.MultiMatch = multiMatchQuery{
		Query:     text,
		Type:      "best_fields",
		Fuzziness: fuzziness,
	}
	for _, f := range fields {
		body.Query.MultiMatch.Fields = append(body.Query.MultiMatch.Fields, f.String())
	}
	body.Size = size

	var out searchResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/" + e.cfg.Index + "/_search")
	if err := e.expect(resp, err); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		if h.Source.FullName == "" {
			continue
		}
		hits = append(hits, Hit{FullName: h.Source.FullName, Score: h.Score})
	}
	sortHits(hits)
	return hits, nil
}

// Close releases the HTTP client.
func (e *ElasticBackend) Close() error {
	return e.client.Close()
}

func (e *ElasticBackend) expect(resp *resty.Response, err error) error {
	if err != nil {
		return caterrors.BackendUnavailable(e.Name(), err)
	}
	if resp.IsError() {
		return e.statusError(resp)
	}
	return nil
}

func (e *ElasticBackend) statusError(resp *resty.Response) error {
	if resp.StatusCode() >= 500 {
		return caterrors.BackendUnavailable(e.Name(), fmt.Errorf("HTTP %d", resp.StatusCode()))
	}
	return caterrors.New(caterrors.ErrCodeIndexFailed,
		fmt.Sprintf("elasticsearch returned HTTP %d: %s", resp.StatusCode(), resp.String()), nil)
}
