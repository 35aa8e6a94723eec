package fulltext

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Aman-CERP/catmatch/internal/catalog"
)

// Field names of an indexed Document.
const (
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldSynonyms    = "synonyms"
	FieldFullName    = "full_name"
)

// FuzzinessAuto scales the allowed edit distance with term length.
const FuzzinessAuto = "AUTO"

// Document is one catalog entry as seen by the full-text engine.
type Document struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Synonyms    string `json:"synonyms"`
	FullName    string `json:"full_name"`
}

// WeightedField is a field name with its query-time boost.
type WeightedField struct {
	Name  string
	Boost float64
}

// String renders the field in Elasticsearch "name^boost" form.
func (f WeightedField) String() string {
	if f.Boost == 0 || f.Boost == 1 {
		return f.Name
	}
	return fmt.Sprintf("%s^%g", f.Name, f.Boost)
}

// DefaultFields are the boosted fields every query searches.
var DefaultFields = []WeightedField{
	{Name: FieldCategory, Boost: 2},
	{Name: FieldSubcategory, Boost: 3},
	{Name: FieldSynonyms, Boost: 1.5},
	{Name: FieldFullName, Boost: 2},
}

// Hit is a raw backend match, keyed by entry full name.
type Hit struct {
	FullName string
	Score    float64
}

// Backend is a full-text search engine.
type Backend interface {
	// Name identifies the backend in logs and health output.
	Name() string

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// IndexDocuments (re)creates the index and loads docs into it.
	IndexDocuments(ctx context.Context, docs []Document) error

	// MultiMatch runs a best-fields fuzzy match over fields and returns at
	// most size hits, best first.
	MultiMatch(ctx context.Context, text string, fields []WeightedField, fuzziness string, size int) ([]Hit, error)

	Close() error
}

// AutoFuzziness returns the edit distance AUTO allows for a term:
// 0 for 1-2 runes, 1 for 3-5 runes, 2 for longer terms.
func AutoFuzziness(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// resolveFuzziness turns a fuzziness setting into one edit distance for
// text. AUTO is computed from the shortest term.
func resolveFuzziness(text, fuzziness string) int {
	switch fuzziness {
	case "0":
		return 0
	case "1":
		return 1
	case "2":
		return 2
	}

	terms := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return 0
	}
	shortest := terms[0]
	for _, t := range terms[1:] {
		if utf8.RuneCountInString(t) < utf8.RuneCountInString(shortest) {
			shortest = t
		}
	}
	return AutoFuzziness(shortest)
}

func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].FullName < hits[j].FullName
	})
}

// DocumentsFromCatalog converts catalog entries to index documents.
// Synonyms are space-joined into one field.
func DocumentsFromCatalog(entries []catalog.Entry) []Document {
	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = Document{
			Category:    e.CategoryName,
			Subcategory: e.SubcategoryName,
			Synonyms:    strings.Join(e.Synonyms, " "),
			FullName:    e.FullName,
		}
	}
	return docs
}
