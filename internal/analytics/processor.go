// Package analytics copies placed orders from the event stream into
// ClickHouse for reporting.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"grocery-ordering-system/internal/adapters/messaging/kafka"
	"grocery-ordering-system/internal/core/domain"
)

// ErrMalformedEvent marks records that can never be processed and belong in the DLQ.
var ErrMalformedEvent = errors.New("malformed order event")

// Sink stores the lines of one order.
type Sink interface {
	InsertOrder(ctx context.Context, order domain.Order) error
}

// Deduplicator remembers which orders were already stored, so a redelivered
// event does not double-count.
type Deduplicator interface {
	FirstSeen(ctx context.Context, orderID string) (bool, error)
	Forget(ctx context.Context, orderID string) error
}

// Processor handles one orders.placed record at a time.
type Processor struct {
	sink   Sink
	dedup  Deduplicator
	logger *slog.Logger
}

// NewProcessor creates a processor. dedup may be nil.
func NewProcessor(sink Sink, dedup Deduplicator, logger *slog.Logger) *Processor {
	return &Processor{sink: sink, dedup: dedup, logger: logger}
}

// Handle returns an error wrapping ErrMalformedEvent for records to dead-letter;
// any other error means the record should be retried.
func (p *Processor) Handle(ctx context.Context, value []byte) error {
	ev, err := kafka.DecodeOrderPlaced(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if len(ev.Lines) == 0 {
		return fmt.Errorf("%w: order %s has no lines", ErrMalformedEvent, ev.ID)
	}

	if p.dedup != nil {
		first, err := p.dedup.FirstSeen(ctx, ev.ID)
		if err != nil {
			// without dedup state the insert still goes ahead
			p.logger.Warn("dedup check failed", "order_id", ev.ID, "error", err)
		} else if !first {
			p.logger.Debug("skipping duplicate order event", "order_id", ev.ID)
			return nil
		}
	}

	if err := p.sink.InsertOrder(ctx, ev.Order); err != nil {
		if p.dedup != nil {
			if ferr := p.dedup.Forget(ctx, ev.ID); ferr != nil {
				p.logger.Warn("failed to clear dedup mark", "order_id", ev.ID, "error", ferr)
			}
		}
		return fmt.Errorf("failed to store order %s: %w", ev.ID, err)
	}

	p.logger.Info("order stored for analytics", "order_id", ev.ID, "lines", len(ev.Lines), "total", ev.Total.String())
	return nil
}
