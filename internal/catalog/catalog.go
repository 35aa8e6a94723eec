// Package catalog holds the static category taxonomy and its flattened,
// uniquely keyed list of searchable entries.
package catalog

import (
	"fmt"
	"strings"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

// FullNameSeparator joins category and subcategory names into an entry key.
const FullNameSeparator = " -> "

// Subcategory is a leaf of the taxonomy.
type Subcategory struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Synonyms []string `yaml:"synonyms,omitempty" json:"synonyms"`
}

// Category owns an ordered list of subcategories.
type Category struct {
	ID            string        `yaml:"id" json:"id"`
	Name          string        `yaml:"name" json:"name"`
	Subcategories []Subcategory `yaml:"subcategories" json:"subcategories"`
}

// Tree is the nested taxonomy definition as loaded from configuration.
type Tree struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Entry is one (category, subcategory) pair exposed as a single searchable
// unit. Index is its position in the flattened list.
type Entry struct {
	Index           int      `json:"index"`
	FullName        string   `json:"full_name"`
	CategoryID      string   `json:"category_id"`
	CategoryName    string   `json:"category_name"`
	SubcategoryID   string   `json:"subcategory_id"`
	SubcategoryName string   `json:"subcategory_name"`
	Synonyms        []string `json:"synonyms"`
}

// Document is the text the embedding provider encodes for this entry.
func (e Entry) Document() string {
	parts := make([]string, 0, 2+len(e.Synonyms))
	parts = append(parts, e.CategoryName, e.SubcategoryName)
	parts = append(parts, e.Synonyms...)
	return strings.Join(parts, " ")
}

// FullName builds the unique entry key.
func FullName(categoryName, subcategoryName string) string {
	return categoryName + FullNameSeparator + subcategoryName
}

// Catalog is the validated, flattened taxonomy. It is immutable after Build
// and safe for concurrent readers.
type Catalog struct {
	tree    Tree
	entries []Entry
	byName  map[string]int
}

// Build validates tree and flattens it in first-seen order of categories,
// then subcategories. Duplicate full names and empty trees are rejected.
func Build(tree Tree) (*Catalog, error) {
	c := &Catalog{
		tree:   cloneTree(tree),
		byName: make(map[string]int),
	}

	seenCategories := make(map[string]bool, len(tree.Categories))
	for ci, cat := range c.tree.Categories {
		if strings.TrimSpace(cat.ID) == "" || strings.TrimSpace(cat.Name) == "" {
			return nil, caterrors.CatalogError(
				fmt.Sprintf("category #%d must have a non-empty id and name", ci+1), nil)
		}
		if seenCategories[cat.ID] {
			return nil, caterrors.CatalogError(
				fmt.Sprintf("duplicate category id %q", cat.ID), nil).
				WithDetail("category_id", cat.ID)
		}
		seenCategories[cat.ID] = true

		seenSubs := make(map[string]bool, len(cat.Subcategories))
		for si, sub := range cat.Subcategories {
			if strings.TrimSpace(sub.ID) == "" || strings.TrimSpace(sub.Name) == "" {
				return nil, caterrors.CatalogError(
					fmt.Sprintf("subcategory #%d of %q must have a non-empty id and name", si+1, cat.ID), nil)
			}
			if seenSubs[sub.ID] {
				return nil, caterrors.CatalogError(
					fmt.Sprintf("duplicate subcategory id %q in category %q", sub.ID, cat.ID), nil).
					WithDetail("category_id", cat.ID).
					WithDetail("subcategory_id", sub.ID)
			}
			seenSubs[sub.ID] = true

			full := FullName(cat.Name, sub.Name)
			if _, dup := c.byName[full]; dup {
				return nil, caterrors.CatalogError(
					fmt.Sprintf("duplicate entry %q", full), nil).
					WithDetail("full_name", full).
					WithSuggestion("category and subcategory display names must be unique together")
			}

			c.byName[full] = len(c.entries)
			c.entries = append(c.entries, Entry{
				Index:           len(c.entries),
				FullName:        full,
				CategoryID:      cat.ID,
				CategoryName:    cat.Name,
				SubcategoryID:   sub.ID,
				SubcategoryName: sub.Name,
				Synonyms:        sub.Synonyms,
			})
		}
	}

	if len(c.entries) == 0 {
		return nil, caterrors.CatalogError("catalog has no subcategories", nil).
			WithSuggestion("define at least one category with one subcategory")
	}

	return c, nil
}

func cloneTree(t Tree) Tree {
	out := Tree{Categories: make([]Category, len(t.Categories))}
	for i, cat := range t.Categories {
		subs := make([]Subcategory, len(cat.Subcategories))
		for j, sub := range cat.Subcategories {
			sub.Synonyms = append([]string(nil), sub.Synonyms...)
			subs[j] = sub
		}
		cat.Subcategories = subs
		out.Categories[i] = cat
	}
	return out
}

// Entries returns the flattened list. Callers must not modify it.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Len returns the number of flattened entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entry returns the entry at index i.
func (c *Catalog) Entry(i int) Entry {
	return c.entries[i]
}

// Lookup resolves a full name to its entry.
func (c *Catalog) Lookup(fullName string) (Entry, bool) {
	i, ok := c.byName[fullName]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Documents returns Entry.Document for every entry, in catalog order.
func (c *Catalog) Documents() []string {
	docs := make([]string, len(c.entries))
	for i, e := range c.entries {
		docs[i] = e.Document()
	}
	return docs
}

// NumCategories returns the number of top-level categories.
func (c *Catalog) NumCategories() int {
	return len(c.tree.Categories)
}
