package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"grocery-ordering-system/internal/core/domain"
)

// EventsChannel publishes accepted orders to a Kafka topic so downstream
// consumers (analytics, fulfilment) can react to them.
type EventsChannel struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewEventsChannel connects to the brokers and checks the connection.
func NewEventsChannel(ctx context.Context, bootstrapServers []string, topic string, logger *slog.Logger) (*EventsChannel, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(bootstrapServers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to kafka: %w", err)
	}

	return &EventsChannel{client: client, topic: topic, logger: logger}, nil
}

func (c *EventsChannel) Name() string { return domain.ChannelEvents }

// Send produces one record keyed by order id and waits for the broker ack,
// so the outcome reflects real delivery.
func (c *EventsChannel) Send(ctx context.Context, n domain.Notification) error {
	payload, err := EncodeOrderPlaced(n)
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic: c.topic,
		Key:   []byte(n.Order.ID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(EventOrderPlaced)},
		},
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}
	c.logger.Debug("order event published", "topic", c.topic, "partition", record.Partition, "offset", record.Offset)
	return nil
}

// Close flushes buffered records and stops the client.
func (c *EventsChannel) Close() {
	c.logger.Info("flushing kafka producer...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.Flush(ctx); err != nil {
		c.logger.Warn("kafka flush did not complete", "error", err)
	}
	c.client.Close()
	c.logger.Info("kafka client stopped")
}
