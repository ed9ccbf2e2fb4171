package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-ordering-system/internal/core/domain"
)

func sampleItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		{Name: "Milk", UnitPrice: decimal.NewFromInt(30), Attributes: map[string]string{"Category": "Dairy"}},
		{Name: "Bread", UnitPrice: decimal.NewFromInt(25)},
		{Name: "Almond Milk", UnitPrice: decimal.RequireFromString("120.50")},
		{Name: "Brown Bread", UnitPrice: decimal.NewFromInt(40)},
	}
}

func TestIndex_Search(t *testing.T) {
	idx := NewIndex(sampleItems())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "substring match", query: "milk", want: []string{"Milk", "Almond Milk"}},
		{name: "case insensitive", query: "BREAD", want: []string{"Bread", "Brown Bread"}},
		{name: "trimmed query", query: "  brown ", want: []string{"Brown Bread"}},
		{name: "no match", query: "eggs", want: []string{}},
		{name: "empty query returns everything", query: "", want: []string{"Milk", "Bread", "Almond Milk", "Brown Bread"}},
		{name: "blank query returns everything", query: "   ", want: []string{"Milk", "Bread", "Almond Milk", "Brown Bread"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Search(tt.query)
			names := make([]string, 0, len(got))
			for _, item := range got {
				names = append(names, item.Name)
				assert.Contains(t, strings.ToLower(item.Name), strings.ToLower(strings.TrimSpace(tt.query)))
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestIndex_EmptyCatalog(t *testing.T) {
	idx := NewIndex(nil)

	got := idx.Search("")
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, idx.Len())

	_, ok := idx.LookupPrice("Milk")
	assert.False(t, ok)
}

func TestIndex_LookupPrice(t *testing.T) {
	idx := NewIndex(sampleItems())

	price, ok := idx.LookupPrice("milk")
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(30)))

	price, ok = idx.LookupPrice(" ALMOND MILK ")
	require.True(t, ok)
	assert.Equal(t, "120.5", price.String())

	// exact match only, no substring fallback
	_, ok = idx.LookupPrice("Almond")
	assert.False(t, ok)
}

func TestIndex_LookupPriceFirstMatchWins(t *testing.T) {
	idx := NewIndex([]domain.CatalogItem{
		{Name: "Rice", UnitPrice: decimal.NewFromInt(60)},
		{Name: "rice", UnitPrice: decimal.NewFromInt(99)},
	})

	price, ok := idx.LookupPrice("RICE")
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(60)))
}

func TestIndex_LookupPriceTrimsCatalogNames(t *testing.T) {
	idx := NewIndex([]domain.CatalogItem{
		{Name: "  Basmati Rice\t", UnitPrice: decimal.NewFromInt(110)},
	})

	price, ok := idx.LookupPrice("basmati rice")
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(110)))
}

func TestIndex_IsolatedFromCallers(t *testing.T) {
	items := sampleItems()
	idx := NewIndex(items)

	// mutating the source slice must not leak into the index
	items[0].Name = "Changed"
	items[0].Attributes["Category"] = "Changed"

	got := idx.Search("milk")
	require.NotEmpty(t, got)
	assert.Equal(t, "Milk", got[0].Name)
	assert.Equal(t, "Dairy", got[0].Attributes["Category"])

	// nor may mutating a search result
	got[0].Attributes["Category"] = "Mutated"
	again := idx.Search("milk")
	assert.Equal(t, "Dairy", again[0].Attributes["Category"])
}
