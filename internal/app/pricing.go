package app

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/core/ports"
)

// PriceResolver turns requested lines into priced lines using the catalog.
type PriceResolver struct {
	catalog ports.CatalogIndex
}

func NewPriceResolver(catalog ports.CatalogIndex) *PriceResolver {
	return &PriceResolver{catalog: catalog}
}

// Resolve prices every line and returns them with the order total.
// Items missing from the catalog are kept at price 0 so ordering keeps
// working against a stale catalog.
func (r *PriceResolver) Resolve(lines []domain.OrderLineInput) ([]domain.OrderLine, decimal.Decimal, error) {
	resolved := make([]domain.OrderLine, 0, len(lines))
	total := decimal.Zero

	for i, in := range lines {
		name := strings.TrimSpace(in.ItemName)
		if name == "" {
			return nil, decimal.Zero, domain.NewMissingField(fmt.Sprintf("items[%d].item", i))
		}
		qty, err := parseQuantity(in.Quantity)
		if err != nil {
			return nil, decimal.Zero, domain.NewInvalidFormat(fmt.Sprintf("items[%d].quantity", i))
		}
		if !qty.IsPositive() || !domain.WithinBounds(qty, domain.MaxQuantity) {
			return nil, decimal.Zero, domain.NewInvalidValue(fmt.Sprintf("items[%d].quantity", i))
		}

		price, ok := r.catalog.LookupPrice(name)
		if !ok {
			price = decimal.Zero
		}
		lineTotal := qty.Mul(price)
		total = total.Add(lineTotal)

		resolved = append(resolved, domain.OrderLine{
			ItemName:  name,
			Quantity:  qty,
			UnitPrice: price,
			LineTotal: lineTotal,
		})
	}
	return resolved, total, nil
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("quantity is empty")
	}
	return decimal.NewFromString(raw)
}
