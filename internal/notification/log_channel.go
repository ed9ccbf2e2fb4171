package notification

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"grocery-ordering-system/internal/core/domain"
)

// LogChannel appends each notification to a local file and emits a
// structured log line. It is the channel used when no external service is
// configured.
type LogChannel struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewLogChannel creates a log channel. An empty path only logs.
func NewLogChannel(path string, logger *slog.Logger) *LogChannel {
	return &LogChannel{path: path, logger: logger}
}

func (c *LogChannel) Name() string { return domain.ChannelLog }

func (c *LogChannel) Send(ctx context.Context, n domain.Notification) error {
	c.logger.InfoContext(ctx, "order notification",
		"order_id", n.Order.ID,
		"customer", n.Order.CustomerName,
		"total", n.Order.Total.String(),
	)
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open notification log: %w", err)
	}
	if _, err := f.WriteString(n.Body + "\n\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write notification log: %w", err)
	}
	return f.Close()
}
