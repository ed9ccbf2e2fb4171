package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/core/ports"
)

// OrderService runs an order through validation, pricing, the ledger and
// notification dispatch.
type OrderService struct {
	resolver *PriceResolver
	ledger   ports.OrderLedger
	notifier ports.Notifier
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// Option customizes an OrderService.
type Option func(*OrderService)

// WithClock replaces the time source used for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

// WithIDGenerator replaces the order ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *OrderService) { s.newID = gen }
}

// NewOrderService is the constructor of our service.
// It receives its dependencies through interfaces.
func NewOrderService(catalog ports.CatalogIndex, ledger ports.OrderLedger, notifier ports.Notifier, logger *slog.Logger, opts ...Option) *OrderService {
	s := &OrderService{
		resolver: NewPriceResolver(catalog),
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOrderID returns a time-ordered UUIDv7.
func NewOrderID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return uuid.NewString()
	}
	return id.String()
}

// PlaceOrder returns a *domain.ValidationError for bad input and wraps
// domain.ErrLedgerUnavailable when the order could not be recorded. Once the
// ledger write succeeds the order is placed: notification problems are only
// reported in the receipt.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Receipt, error) {
	valid, err := Validate(req)
	if err != nil {
		return nil, err
	}

	lines, total, err := s.resolver.Resolve(valid.Items)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:           s.newID(),
		CustomerName: valid.Customer,
		Phone:        valid.Phone,
		Address:      valid.Address,
		Timestamp:    s.now().UTC(),
		Lines:        lines,
		Total:        total,
	}

	if err := s.ledger.Append(ctx, order); err != nil {
		s.logger.Error("failed to record order", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrLedgerUnavailable, err)
	}
	s.logger.Info("order recorded", "order_id", order.ID, "lines", len(order.Lines), "total", order.Total.String())

	// The order is already placed; a client going away must not cancel
	// its notifications.
	outcomes := s.notifier.Dispatch(context.WithoutCancel(ctx), order)
	for _, o := range outcomes {
		if !o.Delivered {
			s.logger.Warn("notification not delivered", "order_id", order.ID, "channel", o.Channel, "detail", o.Detail)
		}
	}

	return &domain.Receipt{Order: order, Outcomes: outcomes}, nil
}
