package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/search"
	"github.com/Aman-CERP/catmatch/internal/telemetry"
)

func TestNew_BufferHasNoColor(t *testing.T) {
	w := New(&bytes.Buffer{})
	assert.False(t, w.UseColor())
}

func TestIsTTY_NonFile(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status with icon", func(w *Writer) { w.Status(">", "loading catalog") }, "> loading catalog\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"success", func(w *Writer) { w.Successf("%d categories", 3) }, "✓ 3 categories\n"},
		{"warning", func(w *Writer) { w.Warning("model unavailable") }, "! model unavailable\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %s", "boom") }, "✗ failed: boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(NewWithColor(buf, false))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithColor(buf, false).Code("a\nb")
	assert.Equal(t, "\n  a\n  b\n\n", buf.String())
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", renderBar(0.5, 10))
	assert.Equal(t, "██████████", renderBar(1.7, 10))
	assert.Equal(t, "░░░░░░░░░░", renderBar(-1, 10))
	assert.Equal(t, "", renderBar(0.5, 0))
}

func TestWriter_SearchResults(t *testing.T) {
	// Given: a response with a synonym and a category-only hit
	resp := &search.Response{
		Query: "кафель",
		Results: []search.SearchResult{
			{Category: "Напольные покрытия", Subcategory: "Плитка", Score: 0.9, Method: search.MethodSynonym},
			{Category: "Инструменты", Score: 0.61, Method: search.MethodSemantic},
		},
		Total:          2,
		ProcessingTime: 0.0042,
	}
	buf := &bytes.Buffer{}

	// When: rendering without color
	NewWithColor(buf, false).SearchResults(resp)

	// Then: each result has rank, score, method and name
	out := buf.String()
	assert.Contains(t, out, `Results for "кафель"`)
	assert.Contains(t, out, " 1. ██████████████████░░ 0.90  synonym  Напольные покрытия / Плитка")
	assert.Contains(t, out, " 2. ████████████░░░░░░░░ 0.61  semantic Инструменты")
	assert.Contains(t, out, "2 result(s) in 4.2ms")
}

func TestWriter_SearchResults_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithColor(buf, false).SearchResults(&search.Response{Query: "xyz"})
	assert.Equal(t, "! No categories found for \"xyz\"\n", buf.String())
}

func TestWriter_CategoryTree(t *testing.T) {
	cat, err := catalog.Default()
	assert.NoError(t, err)
	buf := &bytes.Buffer{}

	NewWithColor(buf, false).CategoryTree(cat.Tree())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Catalog: 3 categories, 8 subcategories\n"))
	assert.Contains(t, out, "Инструменты (инструменты, 2)")
	assert.Contains(t, out, "  ├─ Шпатлевка шпаклевка")
	assert.Contains(t, out, "  └─ Кисти кисточка")
}

func TestWriter_Health(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithColor(buf, false).Health(search.HealthReport{
		Status:    search.StatusDegraded,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Components: search.HealthComponents{
			Model:           search.StatusError,
			FulltextBackend: search.StatusOK,
			Categories:      8,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "! Status: degraded")
	assert.Contains(t, out, "Model:")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "2026-01-02 03:04:05")
}

func TestWriter_Stats(t *testing.T) {
	st := &app.Stats{
		TotalCategories:    3,
		TotalSubcategories: 8,
		ModelName:          "static-hash-256",
		EmbeddingProvider:  "static",
		FulltextBackend:    "bleve",
		FulltextAvailable:  true,
		SupportedMethods:   []string{"exact", "synonym", "semantic", "fulltext"},
		Version:            "dev",
		Searches: &telemetry.Snapshot{
			TotalSearches: 4,
			MethodCounts:  map[string]int64{"synonym": 3, "none": 1},
			LatencyDistribution: map[telemetry.LatencyBucket]int64{
				telemetry.BucketP50: 1,
				telemetry.BucketP10: 3,
			},
			ZeroResultCount:   1,
			ZeroResultQueries: []string{"несуществующий товар"},
			TopTerms:          []telemetry.TermCount{{Term: "кафель", Count: 2}},
		},
	}
	buf := &bytes.Buffer{}

	NewWithColor(buf, false).Stats(st)

	out := buf.String()
	assert.Contains(t, out, "static-hash-256")
	assert.Contains(t, out, "bleve (available: true)")
	assert.Contains(t, out, "exact, synonym, semantic, fulltext")
	assert.Contains(t, out, "кафель (2)")
	assert.Contains(t, out, "    - несуществующий товар")
	// Buckets print fastest first.
	assert.Less(t, strings.Index(out, "<10ms"), strings.Index(out, "10-50ms"))
	assert.Less(t, strings.Index(out, "    none "), strings.Index(out, "    synonym "))
}

func TestWriter_Stats_WithoutQueryLog(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithColor(buf, false).Stats(&app.Stats{SupportedMethods: []string{"exact"}})
	assert.NotContains(t, buf.String(), "Query log")
}
