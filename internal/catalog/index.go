package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"grocery-ordering-system/internal/core/domain"
)

// Index is an immutable, in-memory view of the catalog.
// It is built once at startup and shared by all request handlers.
type Index struct {
	items []domain.CatalogItem
	keys  []string // lower-cased names, same order as items
}

// NewIndex copies items into a new index. A nil or empty slice gives an
// empty index, which is how the service runs when the catalog failed to load.
func NewIndex(items []domain.CatalogItem) *Index {
	idx := &Index{
		items: make([]domain.CatalogItem, len(items)),
		keys:  make([]string, len(items)),
	}
	for i, item := range items {
		idx.items[i] = cloneItem(item)
		idx.keys[i] = strings.ToLower(strings.TrimSpace(item.Name))
	}
	return idx
}

// Search returns every item whose name contains query, ignoring case.
// The query is trimmed first, so a blank query returns the whole catalog.
func (x *Index) Search(query string) []domain.CatalogItem {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.CatalogItem, 0)
	for i, key := range x.keys {
		if strings.Contains(key, q) {
			out = append(out, cloneItem(x.items[i]))
		}
	}
	return out
}

// LookupPrice returns the unit price of the first item whose name equals
// name, ignoring case.
func (x *Index) LookupPrice(name string) (decimal.Decimal, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, k := range x.keys {
		if k == key {
			return x.items[i].UnitPrice, true
		}
	}
	return decimal.Zero, false
}

// Len reports the number of items in the index.
func (x *Index) Len() int {
	return len(x.items)
}

func cloneItem(item domain.CatalogItem) domain.CatalogItem {
	if item.Attributes == nil {
		return item
	}
	attrs := make(map[string]string, len(item.Attributes))
	for k, v := range item.Attributes {
		attrs[k] = v
	}
	item.Attributes = attrs
	return item
}
