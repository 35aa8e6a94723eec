package search

import (
	"strings"

	"github.com/Aman-CERP/catmatch/internal/catalog"
)

// Scores assigned by the lexical matcher.
const (
	ExactScore   = 1.0
	SynonymScore = 0.9
)

type matchEntry struct {
	fullName    string
	subcategory string
	synonyms    []string
}

// Matcher performs exact and synonym matching over the catalog.
//
// An entry matches exactly when the query is a substring of its subcategory
// name. Otherwise it matches by synonym when the query contains, or is
// contained in, any of its synonyms. The containment runs both ways, so a
// short synonym such as "лкм" matches every longer query that mentions it.
type Matcher struct {
	entries []matchEntry
}

// NewMatcher precomputes normalized names and synonyms.
func NewMatcher(cat *catalog.Catalog) *Matcher {
	entries := make([]matchEntry, 0, cat.Len())
	for _, e := range cat.Entries() {
		me := matchEntry{
			fullName:    e.FullName,
			subcategory: Normalize(e.SubcategoryName),
			synonyms:    make([]string, 0, len(e.Synonyms)),
		}
		for _, s := range e.Synonyms {
			if n := Normalize(s); n != "" {
				me.synonyms = append(me.synonyms, n)
			}
		}
		entries = append(entries, me)
	}
	return &Matcher{entries: entries}
}

// Match returns at most one hit per entry, in catalog order.
func (m *Matcher) Match(query string) []Hit {
	q := Normalize(query)
	if q == "" {
		return nil
	}

	var hits []Hit
	for _, e := range m.entries {
		if strings.Contains(e.subcategory, q) {
			hits = append(hits, Hit{FullName: e.fullName, Score: ExactScore, Method: MethodExact})
			continue
		}
		for _, s := range e.synonyms {
			if strings.Contains(s, q) || strings.Contains(q, s) {
				hits = append(hits, Hit{FullName: e.fullName, Score: SynonymScore, Method: MethodSynonym})
				break
			}
		}
	}
	return hits
}
