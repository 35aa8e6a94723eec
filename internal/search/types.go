// Package search merges lexical, full-text and semantic matches over the
// category catalog into one deterministic ranking.
package search

import (
	"encoding/json"
	"fmt"
	"time"
)

// Request defaults.
const (
	DefaultLimit     = 10
	DefaultThreshold = 0.6
)

// Method identifies the stage that produced a result. The numeric order is
// the tie-break priority: lower wins.
type Method int

const (
	MethodExact Method = iota
	MethodSynonym
	MethodFulltext
	MethodSemantic
)

var methodNames = [...]string{"exact", "synonym", "fulltext", "semantic"}

// String returns the wire name of the method.
func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("method(%d)", int(m))
	}
	return methodNames[m]
}

// MarshalJSON encodes the method as its name.
func (m Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a method name.
func (m *Method) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod parses a method name.
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if name == s {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("unknown search method %q", s)
}

// Methods returns every method in priority order.
func Methods() []Method {
	return []Method{MethodExact, MethodSynonym, MethodFulltext, MethodSemantic}
}

// Hit is an intermediate stage match keyed by entry full name.
type Hit struct {
	FullName string
	Score    float64
	Method   Method
}

// Stage names one of the concurrently executed search stages.
type Stage string

const (
	StageLexical  Stage = "lexical"
	StageFulltext Stage = "fulltext"
	StageSemantic Stage = "semantic"
)

// StageResult is the outcome of one stage. A stage with Err set
// contributes no hits.
type StageResult struct {
	Stage   Stage
	Hits    []Hit
	Err     error
	Elapsed time.Duration
}

// Request is a search call. Use NewRequest for the default limit and
// threshold; a zero Limit asks for no results.
type Request struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

// NewRequest returns a request with the default limit and threshold.
func NewRequest(query string) Request {
	return Request{Query: query, Limit: DefaultLimit, Threshold: DefaultThreshold}
}

// SearchResult is one ranked category match.
type SearchResult struct {
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory,omitempty"`
	Score         float64 `json:"score"`
	Method        Method  `json:"method"`
	CategoryID    string  `json:"category_id,omitempty"`
	SubcategoryID string  `json:"subcategory_id,omitempty"`
}

// Response is the ranked answer to a Request.
type Response struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	// ProcessingTime is wall-clock seconds.
	ProcessingTime float64 `json:"processing_time"`
}

// Component statuses reported by Health.
const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusOK          = "ok"
	StatusError       = "error"
	StatusUnavailable = "unavailable"
)

// HealthComponents is the per-component part of a health report.
type HealthComponents struct {
	Model           string `json:"model"`
	FulltextBackend string `json:"fulltext_backend"`
	Categories      int    `json:"categories"`
}

// HealthReport summarizes whether the engine can serve every stage.
type HealthReport struct {
	Status     string           `json:"status"`
	Timestamp  time.Time        `json:"timestamp"`
	Components HealthComponents `json:"components"`
}
