package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/search"
	"github.com/Aman-CERP/catmatch/internal/telemetry"
)

const scoreBarWidth = 20

// SearchResults prints ranked results with a score bar per line.
func (w *Writer) SearchResults(resp *search.Response) {
	if resp == nil || len(resp.Results) == 0 {
		query := ""
		if resp != nil {
			query = resp.Query
		}
		w.Warningf("No categories found for %q", query)
		return
	}

	w.Header(fmt.Sprintf("Results for %q", resp.Query))
	for i, r := range resp.Results {
		name := r.Category
		if r.Subcategory != "" {
			name = r.Category + " / " + r.Subcategory
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s %.2f  %-8s %s\n",
			i+1,
			w.styles.Bar.Render(renderBar(r.Score, scoreBarWidth)),
			r.Score,
			r.Method,
			name)
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(
		fmt.Sprintf("%d result(s) in %.1fms", resp.Total, resp.ProcessingTime*1000)))
}

// CategoryTree prints the taxonomy.
func (w *Writer) CategoryTree(tree catalog.TreeView) {
	w.Header(fmt.Sprintf("Catalog: %d categories, %d subcategories",
		tree.TotalCategories, tree.TotalSubcategories))
	for _, c := range tree.Categories {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", c.Name, w.styles.Dim.Render(fmt.Sprintf("(%s, %d)", c.ID, c.Count)))
		for i, sub := range c.Subcategories {
			branch := "├─"
			if i == len(c.Subcategories)-1 {
				branch = "└─"
			}
			line := fmt.Sprintf("  %s %s", branch, sub.Name)
			if len(sub.Synonyms) > 0 {
				line += " " + w.styles.Label.Render(strings.Join(sub.Synonyms, ", "))
			}
			_, _ = fmt.Fprintln(w.out, line)
		}
	}
}

// Health prints component status.
func (w *Writer) Health(h search.HealthReport) {
	if h.Status == search.StatusHealthy {
		w.Successf("Status: %s", h.Status)
	} else {
		w.Warningf("Status: %s", h.Status)
	}
	w.KeyValue("Model", h.Components.Model)
	w.KeyValue("Full-text backend", h.Components.FulltextBackend)
	w.KeyValue("Categories", h.Components.Categories)
	w.KeyValue("Checked at", h.Timestamp.Format("2006-01-02 15:04:05"))
}

// Stats prints runtime and query log statistics.
func (w *Writer) Stats(st *app.Stats) {
	w.Header("Catalog")
	w.KeyValue("Categories", st.TotalCategories)
	w.KeyValue("Subcategories", st.TotalSubcategories)
	w.Newline()

	w.Header("Search")
	w.KeyValue("Embedding provider", st.EmbeddingProvider)
	w.KeyValue("Model", st.ModelName)
	w.KeyValue("Full-text backend", fmt.Sprintf("%s (available: %t)", st.FulltextBackend, st.FulltextAvailable))
	w.KeyValue("Methods", strings.Join(st.SupportedMethods, ", "))
	w.KeyValue("Version", st.Version)

	if st.Searches == nil {
		return
	}
	snap := st.Searches
	w.Newline()
	w.Header("Query log")
	w.KeyValue("Total searches", snap.TotalSearches)
	w.KeyValue("Zero-result searches", snap.ZeroResultCount)

	if len(snap.MethodCounts) > 0 {
		_, _ = fmt.Fprintln(w.out, w.styles.Label.Render("  Top method:"))
		w.histogram(sortedKeys(snap.MethodCounts), snap.MethodCounts, snap.TotalSearches)
	}
	if len(snap.LatencyDistribution) > 0 {
		_, _ = fmt.Fprintln(w.out, w.styles.Label.Render("  Latency:"))
		keys := make([]string, 0, len(snap.LatencyDistribution))
		counts := make(map[string]int64, len(snap.LatencyDistribution))
		for _, b := range telemetry.LatencyBuckets() {
			if n, ok := snap.LatencyDistribution[b]; ok {
				keys = append(keys, string(b))
				counts[string(b)] = n
			}
		}
		w.histogram(keys, counts, snap.TotalSearches)
	}
	if len(snap.TopTerms) > 0 {
		terms := make([]string, 0, len(snap.TopTerms))
		for _, tc := range snap.TopTerms {
			terms = append(terms, fmt.Sprintf("%s (%d)", tc.Term, tc.Count))
		}
		w.KeyValue("Top terms", strings.Join(terms, ", "))
	}
	if len(snap.ZeroResultQueries) > 0 {
		_, _ = fmt.Fprintln(w.out, w.styles.Label.Render("  Recent zero-result queries:"))
		for _, q := range snap.ZeroResultQueries {
			_, _ = fmt.Fprintf(w.out, "    - %s\n", q)
		}
	}
}

func (w *Writer) histogram(keys []string, counts map[string]int64, total int64) {
	for _, k := range keys {
		frac := 0.0
		if total > 0 {
			frac = float64(counts[k]) / float64(total)
		}
		_, _ = fmt.Fprintf(w.out, "    %-10s %s %d\n", k, w.styles.Bar.Render(renderBar(frac, scoreBarWidth)), counts[k])
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
