package domain

import (
	"errors"
	"fmt"
)

var (
	ErrLedgerUnavailable  = errors.New("order ledger is unavailable")
	ErrCatalogUnavailable = errors.New("catalog is unavailable")
	ErrChannelTimeout     = errors.New("timeout")
)

// ValidationKind tells why a field was rejected.
type ValidationKind string

const (
	MissingField  ValidationKind = "missing_field"
	InvalidFormat ValidationKind = "invalid_format"
	InvalidValue  ValidationKind = "invalid_value"
)

// ValidationError is a client-caused rejection of a single field.
type ValidationError struct {
	Field string
	Kind  ValidationKind
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("%s is required", e.Field)
	case InvalidFormat:
		return fmt.Sprintf("%s has an invalid format", e.Field)
	default:
		return fmt.Sprintf("%s has an invalid value", e.Field)
	}
}

func NewMissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Kind: MissingField}
}

func NewInvalidFormat(field string) *ValidationError {
	return &ValidationError{Field: field, Kind: InvalidFormat}
}

func NewInvalidValue(field string) *ValidationError {
	return &ValidationError{Field: field, Kind: InvalidValue}
}
