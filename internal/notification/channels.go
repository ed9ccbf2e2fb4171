package notification

import (
	"context"
	"log/slog"

	"grocery-ordering-system/internal/adapters/messaging/kafka"
	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/observability"
)

// BuildChannels creates the configured channels in configuration order.
// The returned func releases whatever the channels hold open.
func BuildChannels(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]Channel, func(), error) {
	var (
		channels []Channel
		closers  []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, name := range cfg.Notification.Channels {
		switch name {
		case domain.ChannelLog:
			channels = append(channels, NewLogChannel(cfg.Notification.Log.Path, logger))
		case domain.ChannelEmail:
			channels = append(channels, NewEmailChannel(cfg.Notification.Email))
		case domain.ChannelChatBot:
			client := observability.NewHTTPClient(cfg.Notification.Timeout())
			channels = append(channels, NewChatBotChannel(cfg.Notification.ChatBot, client))
		case domain.ChannelEvents:
			events, err := kafka.NewEventsChannel(ctx, cfg.Kafka.Brokers(), cfg.Kafka.Topic, logger)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, events.Close)
			channels = append(channels, events)
		}
	}
	return channels, closeAll, nil
}

// NewDispatcherFromConfig builds the channels and a dispatcher over them.
func NewDispatcherFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dispatcher, func(), error) {
	channels, closeAll, err := BuildChannels(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	d := NewDispatcher(channels, DispatcherConfig{
		Timeout:     cfg.Notification.Timeout(),
		MaxAttempts: cfg.Notification.MaxAttempts,
	}, logger)
	return d, closeAll, nil
}
