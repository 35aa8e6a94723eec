package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for lexical comparison: NFKC, lower case, trimmed.
// Names, synonyms and queries all go through it.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(s)))
}
