package mock

import (
	"context"
	"sync"
	"time"

	"grocery-ordering-system/internal/core/domain"
)

// Channel is a stub notification channel that records what it was asked to
// send. Err makes every send fail; Delay holds each send until it elapses
// or the context ends; Panic makes Send panic.
type Channel struct {
	ChannelName string
	Err         error
	Delay       time.Duration
	Panic       bool

	mu    sync.Mutex
	sent  []domain.Notification
	calls int
}

func NewChannel(name string) *Channel {
	return &Channel{ChannelName: name}
}

func (c *Channel) Name() string { return c.ChannelName }

func (c *Channel) Send(ctx context.Context, n domain.Notification) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.Panic {
		panic("mock channel exploded")
	}
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.Err != nil {
		return c.Err
	}

	c.mu.Lock()
	c.sent = append(c.sent, n)
	c.mu.Unlock()
	return nil
}

// Sent returns the notifications delivered so far.
func (c *Channel) Sent() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.sent...)
}

// Calls returns how many times Send was invoked.
func (c *Channel) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
