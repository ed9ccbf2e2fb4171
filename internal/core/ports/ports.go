package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"grocery-ordering-system/internal/core/domain"
)

// CatalogIndex answers item searches and price lookups. Implementations are
// read-only after construction and safe for concurrent use.
type CatalogIndex interface {
	Search(query string) []domain.CatalogItem
	LookupPrice(name string) (decimal.Decimal, bool)
}

// OrderLedger is an "outgoing port" for durable, append-only order storage.
type OrderLedger interface {
	Append(ctx context.Context, order domain.Order) error
}

// Notifier fans an accepted order out to the configured channels.
// It never fails: every channel problem is reported in the outcomes.
type Notifier interface {
	Dispatch(ctx context.Context, order domain.Order) []domain.NotificationOutcome
}

// OrderService is an "incoming port" that defines how the outside world can interact with our kernel.
type OrderService interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Receipt, error)
}

// RateLimiterRepository checks whether a key may perform another request in the window.
type RateLimiterRepository interface {
	IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
