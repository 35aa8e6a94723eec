package catalog

// CategoryView is one category in the categories() listing.
type CategoryView struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Subcategories []Subcategory `json:"subcategories"`
	Count         int           `json:"count"`
}

// TreeView is the taxonomy with per-category and total counts.
type TreeView struct {
	Categories         []CategoryView `json:"categories"`
	TotalCategories    int            `json:"total_categories"`
	TotalSubcategories int            `json:"total_subcategories"`
}

// Tree returns a copy of the taxonomy with counts.
func (c *Catalog) Tree() TreeView {
	view := TreeView{
		Categories:         make([]CategoryView, 0, len(c.tree.Categories)),
		TotalCategories:    len(c.tree.Categories),
		TotalSubcategories: len(c.entries),
	}
	for _, cat := range cloneTree(c.tree).Categories {
		view.Categories = append(view.Categories, CategoryView{
			ID:            cat.ID,
			Name:          cat.Name,
			Subcategories: cat.Subcategories,
			Count:         len(cat.Subcategories),
		})
	}
	return view
}
