package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is a sellable item loaded from the catalog file.
// Attributes carries every column of the source row as-is.
type CatalogItem struct {
	Name       string            `json:"name"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// OrderRequest is an order as submitted by a client, before validation.
type OrderRequest struct {
	Customer string
	Phone    string
	Address  string
	Items    []OrderLineInput
}

// OrderLineInput is one requested line. Quantity is kept as received so the
// price resolver can reject malformed values instead of guessing.
type OrderLineInput struct {
	ItemName string
	Quantity string
}

// OrderLine is a line with its resolved unit price.
type OrderLine struct {
	ItemName  string          `json:"item"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Order is the central entity of our domain. It is immutable once accepted.
type Order struct {
	ID           string          `json:"order_id"`
	CustomerName string          `json:"customer"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Timestamp    time.Time       `json:"timestamp"`
	Lines        []OrderLine     `json:"items"`
	Total        decimal.Decimal `json:"total"`
}

// Limits on decimal amounts accepted from clients and the catalog file.
// The exponent is checked first: comparing 1e999999999 rescales it to a
// billion digits.
const (
	MaxQuantity  = 10000
	MaxUnitPrice = 10_000_000
	maxExponent  = 18
)

// WithinBounds reports whether d has a sane exponent and does not exceed max.
func WithinBounds(d decimal.Decimal, max int64) bool {
	if exp := d.Exponent(); exp < -maxExponent || exp > maxExponent {
		return false
	}
	return d.Cmp(decimal.NewFromInt(max)) <= 0
}
