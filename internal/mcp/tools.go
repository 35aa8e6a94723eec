package mcp

import (
	"time"

	"github.com/Aman-CERP/catmatch/internal/search"
)

// Tool names.
const (
	ToolSearchCategories = "search_categories"
	ToolListCategories   = "list_categories"
	ToolHealthCheck      = "health_check"
)

// SearchInput defines the input schema for the search_categories tool.
// Limit and Threshold are pointers so an explicit zero is distinguishable
// from an omitted value.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"product description to classify, e.g. ламинат дуб"`
	Limit     *int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum semantic similarity in [0,1], default 0.6"`
}

// SearchOutput defines the output schema for the search_categories tool.
type SearchOutput struct {
	Query          string               `json:"query"`
	Results        []SearchResultOutput `json:"results" jsonschema:"matched categories, best first"`
	Total          int                  `json:"total"`
	ProcessingTime float64              `json:"processing_time" jsonschema:"server-side latency in seconds"`
}

// SearchResultOutput is one matched category.
type SearchResultOutput struct {
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory,omitempty"`
	Score         float64 `json:"score" jsonschema:"relevance score between 0 and 1"`
	Method        string  `json:"method" jsonschema:"exact, synonym, fulltext or semantic"`
	CategoryID    string  `json:"category_id,omitempty"`
	SubcategoryID string  `json:"subcategory_id,omitempty"`
}

// ListCategoriesInput defines the input schema for list_categories (no parameters).
type ListCategoriesInput struct{}

// HealthInput defines the input schema for health_check (no parameters).
type HealthInput struct{}

// HealthOutput defines the output schema for health_check.
type HealthOutput struct {
	Status          string `json:"status" jsonschema:"healthy or degraded"`
	Timestamp       string `json:"timestamp" jsonschema:"RFC 3339 time of the check"`
	Model           string `json:"model"`
	FulltextBackend string `json:"fulltext_backend"`
	Categories      int    `json:"categories"`
}

// ToSearchOutput converts an engine response into the tool output shape.
func ToSearchOutput(resp *search.Response) SearchOutput {
	if resp == nil {
		return SearchOutput{Results: []SearchResultOutput{}}
	}
	out := SearchOutput{
		Query:          resp.Query,
		Results:        make([]SearchResultOutput, 0, len(resp.Results)),
		Total:          resp.Total,
		ProcessingTime: resp.ProcessingTime,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, SearchResultOutput{
			Category:      r.Category,
			Subcategory:   r.Subcategory,
			Score:         r.Score,
			Method:        r.Method.String(),
			CategoryID:    r.CategoryID,
			SubcategoryID: r.SubcategoryID,
		})
	}
	return out
}

// ToHealthOutput flattens a health report.
func ToHealthOutput(h search.HealthReport) HealthOutput {
	return HealthOutput{
		Status:          h.Status,
		Timestamp:       h.Timestamp.UTC().Format(time.RFC3339),
		Model:           h.Components.Model,
		FulltextBackend: h.Components.FulltextBackend,
		Categories:      h.Components.Categories,
	}
}
