package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"grocery-ordering-system/internal/adapters/storage/redis"
	"grocery-ordering-system/internal/analytics"
	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/observability"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("order analytics starting", "env", cfg.App.Env, "topic", cfg.Kafka.Topic)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Component Initialization ---
	kafkaBrokers := cfg.Kafka.Brokers()
	if len(kafkaBrokers) == 0 {
		logger.Error("kafka.bootstrap_servers is not set")
		os.Exit(1)
	}

	dlqProducer, err := kgo.NewClient(
		kgo.SeedBrokers(kafkaBrokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		logger.Error("failed to create Kafka producer for DLQ", "error", err)
		os.Exit(1)
	}
	defer dlqProducer.Close()

	store, err := analytics.Open(ctx, cfg.ClickHouse)
	if err != nil {
		logger.Error("failed to connect to ClickHouse", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close ClickHouse connection", "error", err)
		}
	}()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare ClickHouse schema", "error", err)
		os.Exit(1)
	}

	var dedup analytics.Deduplicator
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn("duplicate detection disabled", "error", err)
		} else {
			defer rdb.Close()
			dedup = analytics.NewRedisDeduplicator(rdb, 24*time.Hour)
		}
	}

	processor := analytics.NewProcessor(store, dedup, logger)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kafkaBrokers...),
		kgo.ConsumerGroup("order-analytics"),
		kgo.ConsumeTopics(cfg.Kafka.Topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		logger.Error("failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	logger.Info("order analytics running")

	// --- Main processing loop ---
	for {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}
		fetches.EachError(func(t string, p int32, err error) {
			logger.Error("kafka fetch error", "topic", t, "partition", p, "error", err)
		})

		failed := false
		firsts := make(map[string]map[int32]kgo.EpochOffset)
		fetches.EachRecord(func(record *kgo.Record) {
			if failed {
				return
			}
			markFirst(firsts, record)
			err := processor.Handle(ctx, record.Value)
			switch {
			case err == nil:
			case errors.Is(err, analytics.ErrMalformedEvent):
				logger.Error("malformed order event, sending to DLQ", "offset", record.Offset, "error", err)
				sendToDLQ(ctx, dlqProducer, cfg.Kafka.DLQTopic, record, "malformed_event", err.Error(), logger)
			default:
				logger.Error("failed to store order event", "offset", record.Offset, "error", err)
				failed = true
			}
		})

		if failed {
			// Leave the batch uncommitted and rewind so it is redelivered.
			consumer.SetOffsets(rewindOffsets(consumer.CommittedOffsets(), firsts))
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if err := consumer.CommitUncommittedOffsets(ctx); err != nil {
			logger.Error("error committing offsets", "error", err)
		}
	}

	logger.Info("order analytics stopping...")
}

// markFirst records the offset of the first record seen per partition.
func markFirst(firsts map[string]map[int32]kgo.EpochOffset, r *kgo.Record) {
	parts, ok := firsts[r.Topic]
	if !ok {
		parts = make(map[int32]kgo.EpochOffset)
		firsts[r.Topic] = parts
	}
	if _, seen := parts[r.Partition]; !seen {
		parts[r.Partition] = kgo.EpochOffset{Epoch: r.LeaderEpoch, Offset: r.Offset}
	}
}

// rewindOffsets picks where each partition of a failed batch resumes: the
// committed offset when the group has one, else the batch's first record.
func rewindOffsets(committed, firsts map[string]map[int32]kgo.EpochOffset) map[string]map[int32]kgo.EpochOffset {
	out := make(map[string]map[int32]kgo.EpochOffset, len(firsts))
	for topic, parts := range firsts {
		out[topic] = make(map[int32]kgo.EpochOffset, len(parts))
		for p, first := range parts {
			if c, ok := committed[topic][p]; ok && c.Offset >= 0 && c.Offset <= first.Offset {
				out[topic][p] = c
				continue
			}
			out[topic][p] = first
		}
	}
	return out
}

// sendToDLQ forwards the original record with failure metadata in its headers.
func sendToDLQ(ctx context.Context, p *kgo.Client, topic string, original *kgo.Record, errorType, errorString string, logger *slog.Logger) {
	dlqRecord := &kgo.Record{
		Topic: topic,
		Value: original.Value,
		Key:   original.Key,
		Headers: []kgo.RecordHeader{
			{Key: "error_type", Value: []byte(errorType)},
			{Key: "error_string", Value: []byte(errorString)},
			{Key: "original_topic", Value: []byte(original.Topic)},
		},
	}
	if err := p.ProduceSync(ctx, dlqRecord).FirstErr(); err != nil {
		logger.Error("failed to write to DLQ", "topic", topic, "error", err)
	}
}
