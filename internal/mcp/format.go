package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/search"
)

// FormatSearchResults formats a search response as markdown.
func FormatSearchResults(resp *search.Response) string {
	if resp == nil || len(resp.Results) == 0 {
		query := ""
		if resp != nil {
			query = resp.Query
		}
		return fmt.Sprintf("No categories found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Categories for \"%s\"\n\n", resp.Query))
	sb.WriteString(fmt.Sprintf("Found %d result", resp.Total))
	if resp.Total != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(fmt.Sprintf(" in %.0fms\n\n", resp.ProcessingTime*1000))

	for i, r := range resp.Results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r search.SearchResult) {
	name := r.Category
	if r.Subcategory != "" {
		name = r.Category + " / " + r.Subcategory
	}
	sb.WriteString(fmt.Sprintf("%d. **%s** (score: %.2f, %s)\n", num, name, r.Score, r.Method))
}

// FormatCategoryTree renders the taxonomy as a nested markdown list.
func FormatCategoryTree(tree catalog.TreeView) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Catalog (%d categories, %d subcategories)\n\n",
		tree.TotalCategories, tree.TotalSubcategories))
	for _, c := range tree.Categories {
		sb.WriteString(fmt.Sprintf("- **%s** `%s`\n", c.Name, c.ID))
		for _, sub := range c.Subcategories {
			sb.WriteString(fmt.Sprintf("  - %s `%s`", sub.Name, sub.ID))
			if len(sub.Synonyms) > 0 {
				sb.WriteString(": " + strings.Join(sub.Synonyms, ", "))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
