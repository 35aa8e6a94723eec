package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/catmatch/internal/catalog"
)

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Плитка ", "плитка"},
		{"ＬＫＭ", "lkm"},
		{"ШПАТЛЁВКА", "шпатлёвка"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(defaultCatalog(t))

	tests := []struct {
		name  string
		query string
		want  []Hit
	}{
		{
			name:  "full subcategory name is exact",
			query: "Плитка",
			want:  []Hit{{FullName: "Напольные покрытия -> Плитка", Score: 1.0, Method: MethodExact}},
		},
		{
			name:  "prefix of subcategory name is exact",
			query: "лами",
			want:  []Hit{{FullName: "Напольные покрытия -> Ламинат", Score: 1.0, Method: MethodExact}},
		},
		{
			name:  "synonym equality",
			query: "шпаклевка",
			want:  []Hit{{FullName: "Отделочные материалы -> Шпатлевка", Score: 0.9, Method: MethodSynonym}},
		},
		{
			name:  "query contains synonym",
			query: "купить кафель недорого",
			want:  []Hit{{FullName: "Напольные покрытия -> Плитка", Score: 0.9, Method: MethodSynonym}},
		},
		{
			name:  "query inside synonym",
			query: "водоэмульс",
			want:  []Hit{{FullName: "Отделочные материалы -> Краска", Score: 0.9, Method: MethodSynonym}},
		},
		{
			name:  "exact wins over synonym for the same entry",
			query: "обои",
			want:  []Hit{{FullName: "Отделочные материалы -> Обои", Score: 1.0, Method: MethodExact}},
		},
		{
			name:  "one hit per entry in catalog order",
			query: "покрытие",
			want: []Hit{
				{FullName: "Отделочные материалы -> Краска", Score: 0.9, Method: MethodSynonym},
				{FullName: "Напольные покрытия -> Линолеум", Score: 0.9, Method: MethodSynonym},
			},
		},
		{
			name:  "no match",
			query: "несуществующий товар",
			want:  nil,
		},
		{
			name:  "blank query",
			query: "   ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.query))
		})
	}
}
