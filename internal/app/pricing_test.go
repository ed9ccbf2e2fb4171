package app

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-ordering-system/internal/catalog"
	"grocery-ordering-system/internal/core/domain"
)

func testCatalog() *catalog.Index {
	return catalog.NewIndex([]domain.CatalogItem{
		{Name: "Milk", UnitPrice: decimal.NewFromInt(30)},
		{Name: "Bread", UnitPrice: decimal.NewFromInt(25)},
		{Name: "Tomato", UnitPrice: decimal.RequireFromString("0.1")},
	})
}

func TestPriceResolver_Total(t *testing.T) {
	r := NewPriceResolver(testCatalog())

	lines, total, err := r.Resolve([]domain.OrderLineInput{
		{ItemName: "Milk", Quantity: "2"},
		{ItemName: "Bread", Quantity: "1"},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "60", lines[0].LineTotal.String())
	assert.Equal(t, "25", lines[1].LineTotal.String())
	assert.True(t, total.Equal(decimal.NewFromInt(85)), "total = %s", total)
}

func TestPriceResolver_DecimalExactness(t *testing.T) {
	r := NewPriceResolver(testCatalog())

	// 0.1 * 3 summed with float64 would give 0.30000000000000004
	lines, total, err := r.Resolve([]domain.OrderLineInput{
		{ItemName: "tomato", Quantity: "1"},
		{ItemName: "TOMATO", Quantity: "1"},
		{ItemName: "Tomato", Quantity: "1"},
	})
	require.NoError(t, err)
	assert.Len(t, lines, 3)
	assert.Equal(t, "0.3", total.String())

	_, total, err = r.Resolve([]domain.OrderLineInput{{ItemName: "Milk", Quantity: "1.5"}})
	require.NoError(t, err)
	assert.Equal(t, "45", total.String())
}

func TestPriceResolver_UnknownItemIsFree(t *testing.T) {
	r := NewPriceResolver(testCatalog())

	lines, total, err := r.Resolve([]domain.OrderLineInput{
		{ItemName: "Saffron", Quantity: "3"},
		{ItemName: "Milk", Quantity: "1"},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Saffron", lines[0].ItemName)
	assert.True(t, lines[0].UnitPrice.IsZero())
	assert.True(t, lines[0].LineTotal.IsZero())
	assert.Equal(t, "30", total.String())
}

func TestPriceResolver_RejectsBadLines(t *testing.T) {
	r := NewPriceResolver(testCatalog())

	tests := []struct {
		name      string
		lines     []domain.OrderLineInput
		wantField string
		wantKind  domain.ValidationKind
	}{
		{name: "non numeric quantity", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: "two"}}, wantField: "items[0].quantity", wantKind: domain.InvalidFormat},
		{name: "missing quantity", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: ""}}, wantField: "items[0].quantity", wantKind: domain.InvalidFormat},
		{name: "zero quantity", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: "0"}}, wantField: "items[0].quantity", wantKind: domain.InvalidValue},
		{name: "negative quantity", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: "1"}, {ItemName: "Bread", Quantity: "-2"}}, wantField: "items[1].quantity", wantKind: domain.InvalidValue},
		{name: "quantity above limit", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: "10001"}}, wantField: "items[0].quantity", wantKind: domain.InvalidValue},
		{name: "huge exponent", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: "1e999999999"}}, wantField: "items[0].quantity", wantKind: domain.InvalidValue},
		{name: "tiny exponent", lines: []domain.OrderLineInput{{ItemName: "Milk", Quantity: "1e-999999999"}}, wantField: "items[0].quantity", wantKind: domain.InvalidValue},
		{name: "blank item", lines: []domain.OrderLineInput{{ItemName: "  ", Quantity: "1"}}, wantField: "items[0].item", wantKind: domain.MissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Resolve(tt.lines)

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.Equal(t, tt.wantKind, vErr.Kind)
		})
	}
}

func TestPriceResolver_AcceptsQuantityAtLimit(t *testing.T) {
	r := NewPriceResolver(testCatalog())

	_, total, err := r.Resolve([]domain.OrderLineInput{
		{ItemName: "Tomato", Quantity: "1e4"},
		{ItemName: "Milk", Quantity: "0.25"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1007.5", total.String())
}
