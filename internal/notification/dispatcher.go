package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/observability"
)

// Channel delivers an order notification through one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, n domain.Notification) error
}

// DispatcherConfig controls how each channel is driven.
type DispatcherConfig struct {
	Timeout       time.Duration // per channel, retries included
	MaxAttempts   int           // 1 disables retry
	RetryInterval time.Duration // first backoff delay
}

// Dispatcher sends every order to a fixed list of channels at once and
// reports each channel's outcome on its own. It is the channel boundary:
// errors, panics and timeouts become failed outcomes.
type Dispatcher struct {
	channels []Channel
	cfg      DispatcherConfig
	logger   *slog.Logger
}

func NewDispatcher(channels []Channel, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	return &Dispatcher{channels: channels, cfg: cfg, logger: logger}
}

// Channels returns the configured channel names in dispatch order.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Dispatch attempts every channel concurrently and returns one outcome per
// channel, in configuration order.
func (d *Dispatcher) Dispatch(ctx context.Context, order domain.Order) []domain.NotificationOutcome {
	n := domain.Notification{Order: order, Body: FormatOrder(order)}
	outcomes := make([]domain.NotificationOutcome, len(d.channels))

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			outcomes[i] = d.deliver(ctx, ch, n)
		}(i, ch)
	}
	wg.Wait()

	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, n domain.Notification) domain.NotificationOutcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("channel panicked: %v", r)
			}
		}()
		done <- d.send(ctx, ch, n)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	outcome := domain.NotificationOutcome{Channel: ch.Name(), Delivered: err == nil}
	if err != nil {
		outcome.Detail = describe(err)
		d.logger.Warn("notification failed", "channel", ch.Name(), "order_id", n.Order.ID, "detail", outcome.Detail)
	} else {
		d.logger.Debug("notification sent", "channel", ch.Name(), "order_id", n.Order.ID)
	}
	observability.NotificationObserved(ch.Name(), outcome.Status(), time.Since(start))
	return outcome
}

// send makes one attempt, or several with exponential backoff when retries
// are enabled. Channels mark errors that retrying cannot fix with
// backoff.Permanent.
func (d *Dispatcher) send(ctx context.Context, ch Channel, n domain.Notification) error {
	if d.cfg.MaxAttempts == 1 {
		return ch.Send(ctx, n)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.RetryInterval
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, ch.Send(ctx, n)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Debug("retrying notification", "channel", ch.Name(), "order_id", n.Order.ID, "error", err, "next", next)
		}),
	)
	return err
}

func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrChannelTimeout) {
		return domain.ErrChannelTimeout.Error()
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap().Error()
	}
	return err.Error()
}
