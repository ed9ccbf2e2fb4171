package app

import (
	"regexp"
	"strings"

	"grocery-ordering-system/internal/core/domain"
)

// countryCode is the only region we deliver to.
const countryCode = "+91"

var phonePattern = regexp.MustCompile(`^(\+91)?(\d{10})$`)

// ValidatedOrder is an order request that passed Validate, with trimmed
// contact fields and a canonical phone number.
type ValidatedOrder struct {
	Customer string
	Phone    string
	Address  string
	Items    []domain.OrderLineInput
}

// Validate checks the request field by field and stops at the first failure.
func Validate(req domain.OrderRequest) (*ValidatedOrder, error) {
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return nil, domain.NewMissingField("customer")
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, domain.NewMissingField("phone")
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, domain.NewMissingField("address")
	}
	if len(req.Items) == 0 {
		return nil, domain.NewMissingField("items")
	}
	normalized, ok := NormalizePhone(phone)
	if !ok {
		return nil, domain.NewInvalidFormat("phone")
	}

	return &ValidatedOrder{
		Customer: customer,
		Phone:    normalized,
		Address:  address,
		Items:    req.Items,
	}, nil
}

// NormalizePhone accepts ten digits with an optional +91 prefix and returns
// the +91XXXXXXXXXX form. Applying it to its own output is a no-op.
func NormalizePhone(phone string) (string, bool) {
	m := phonePattern.FindStringSubmatch(strings.TrimSpace(phone))
	if m == nil {
		return "", false
	}
	return countryCode + m[2], true
}
