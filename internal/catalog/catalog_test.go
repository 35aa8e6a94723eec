package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caterrors "github.com/Aman-CERP/catmatch/internal/errors"
)

func sampleTree() Tree {
	return Tree{Categories: []Category{
		{ID: "floor", Name: "Напольные покрытия", Subcategories: []Subcategory{
			{ID: "tile", Name: "Плитка", Synonyms: []string{"кафель", "керамика"}},
			{ID: "laminate", Name: "Ламинат"},
		}},
		{ID: "tools", Name: "Инструменты", Subcategories: []Subcategory{
			{ID: "brush", Name: "Кисти", Synonyms: []string{"кисточка"}},
		}},
	}}
}

func TestBuild_FlattensInFirstSeenOrder(t *testing.T) {
	c, err := Build(sampleTree())
	require.NoError(t, err)

	require.Equal(t, 3, c.Len())
	names := make([]string, 0, c.Len())
	for i, e := range c.Entries() {
		assert.Equal(t, i, e.Index)
		names = append(names, e.FullName)
	}
	assert.Equal(t, []string{
		"Напольные покрытия -> Плитка",
		"Напольные покрытия -> Ламинат",
		"Инструменты -> Кисти",
	}, names)
	assert.Equal(t, 2, c.NumCategories())
}

func TestBuild_LookupByFullName(t *testing.T) {
	c, err := Build(sampleTree())
	require.NoError(t, err)

	e, ok := c.Lookup("Инструменты -> Кисти")
	require.True(t, ok)
	assert.Equal(t, "tools", e.CategoryID)
	assert.Equal(t, "brush", e.SubcategoryID)
	assert.Equal(t, []string{"кисточка"}, e.Synonyms)

	_, ok = c.Lookup("Инструменты -> Валики")
	assert.False(t, ok)
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
	}{
		{"empty tree", Tree{}},
		{"category without subcategories", Tree{Categories: []Category{{ID: "a", Name: "A"}}}},
		{"duplicate full name", Tree{Categories: []Category{
			{ID: "a", Name: "A", Subcategories: []Subcategory{{ID: "x", Name: "X"}}},
			{ID: "b", Name: "A", Subcategories: []Subcategory{{ID: "y", Name: "X"}}},
		}}},
		{"duplicate category id", Tree{Categories: []Category{
			{ID: "a", Name: "A", Subcategories: []Subcategory{{ID: "x", Name: "X"}}},
			{ID: "a", Name: "B", Subcategories: []Subcategory{{ID: "y", Name: "Y"}}},
		}}},
		{"duplicate subcategory id", Tree{Categories: []Category{
			{ID: "a", Name: "A", Subcategories: []Subcategory{{ID: "x", Name: "X"}, {ID: "x", Name: "Y"}}},
		}}},
		{"blank name", Tree{Categories: []Category{
			{ID: "a", Name: "A", Subcategories: []Subcategory{{ID: "x", Name: "  "}}},
		}}},
		{"blank category id", Tree{Categories: []Category{
			{Name: "A", Subcategories: []Subcategory{{ID: "x", Name: "X"}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Build(tt.tree)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Equal(t, caterrors.ErrCodeCatalogInvalid, caterrors.GetCode(err))
			assert.True(t, caterrors.IsFatal(err))
		})
	}
}

func TestBuild_IsolatedFromCallerMutation(t *testing.T) {
	tree := sampleTree()
	c, err := Build(tree)
	require.NoError(t, err)

	tree.Categories[0].Subcategories[0].Synonyms[0] = "mutated"
	tree.Categories[0].Name = "mutated"

	assert.Equal(t, "кафель", c.Entry(0).Synonyms[0])
	assert.Equal(t, "Напольные покрытия", c.Tree().Categories[0].Name)
}

func TestEntry_Document(t *testing.T) {
	c, err := Build(sampleTree())
	require.NoError(t, err)

	assert.Equal(t, "Напольные покрытия Плитка кафель керамика", c.Entry(0).Document())
	assert.Equal(t, "Напольные покрытия Ламинат", c.Entry(1).Document())
	assert.Len(t, c.Documents(), 3)
}

func TestTree_Counts(t *testing.T) {
	c, err := Build(sampleTree())
	require.NoError(t, err)

	view := c.Tree()
	assert.Equal(t, 2, view.TotalCategories)
	assert.Equal(t, 3, view.TotalSubcategories)
	require.Len(t, view.Categories, 2)
	assert.Equal(t, 2, view.Categories[0].Count)
	assert.Equal(t, 1, view.Categories[1].Count)
}

func TestDefault_BuildsBuiltInTaxonomy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 3, c.NumCategories())
	assert.Equal(t, 8, c.Len())
	e, ok := c.Lookup("Отделочные материалы -> Шпатлевка")
	require.True(t, ok)
	assert.Equal(t, "шпатлевка", e.SubcategoryID)
	assert.Contains(t, e.Synonyms, "шпаклевка")

	tile, ok := c.Lookup("Напольные покрытия -> Плитка")
	require.True(t, ok)
	assert.Equal(t, "кафель", tile.Synonyms[0])
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("categories:\n  - id: a\n    name: A\n    subs: []\n"))
	require.Error(t, err)
	assert.Equal(t, caterrors.ErrCodeCatalogInvalid, caterrors.GetCode(err))
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no subcategories")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - id: paint
    name: Краски
    subcategories:
      - id: enamel
        name: Эмаль
        synonyms: [эмалевая краска]
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Краски -> Эмаль", c.Entry(0).FullName)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, caterrors.ErrCodeCatalogNotFound, caterrors.GetCode(err))

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Len())
}
