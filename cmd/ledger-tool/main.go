package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"grocery-ordering-system/internal/adapters/storage/file"
	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/notification"
	"grocery-ordering-system/internal/observability"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger := observability.SetupLogger(cfg.App.Env)

	var ledgerPath string
	rootCmd := &cobra.Command{Use: "ledger-tool", Short: "Inspect the order ledger and the analytics DLQ"}
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", cfg.Ledger.Path, "Path to the JSON-lines order ledger")

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show the most recent ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			orders, err := lastOrders(ledgerPath, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tORDER_ID\tCUSTOMER\tPHONE\tLINES\tTOTAL")
			fmt.Fprintln(w, "----\t--------\t--------\t-----\t-----\t-----")
			for _, o := range orders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					o.Timestamp.Format(time.RFC3339), o.ID, o.CustomerName, o.Phone, len(o.Lines), o.Total.String())
			}
			return w.Flush()
		},
	}
	viewCmd.Flags().Int("limit", 10, "Number of entries to show")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute line and order totals and report inconsistent records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var checked, broken int
			err := file.ReadLedger(ledgerPath, func(line int, order *domain.Order, err error) error {
				checked++
				if err != nil {
					broken++
					color.Red("line %d: %v", line, err)
					return nil
				}
				for _, problem := range verifyOrder(order) {
					broken++
					color.Red("line %d (%s): %s", line, order.ID, problem)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if broken > 0 {
				return fmt.Errorf("%d problem(s) in %d record(s)", broken, checked)
			}
			color.Green("%d record(s) verified", checked)
			return nil
		},
	}

	resendCmd := &cobra.Command{
		Use:   "resend [order-id]",
		Short: "Dispatch the notifications for a recorded order again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := file.FindOrder(ledgerPath, args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			dispatcher, closeChannels, err := notification.NewDispatcherFromConfig(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeChannels()

			failed := 0
			for _, o := range dispatcher.Dispatch(ctx, *order) {
				if o.Delivered {
					color.Green("%-8s sent", o.Channel)
				} else {
					failed++
					color.Red("%-8s failed: %s", o.Channel, o.Detail)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d channel(s) failed", failed)
			}
			return nil
		},
	}

	rootCmd.AddCommand(viewCmd, verifyCmd, resendCmd, newDLQCmd(cfg))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// lastOrders returns up to limit of the newest well-formed records, oldest first.
func lastOrders(path string, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := file.ReadLedger(path, func(_ int, order *domain.Order, err error) error {
		if err != nil {
			return nil
		}
		orders = append(orders, *order)
		if limit > 0 && len(orders) > limit {
			orders = orders[1:]
		}
		return nil
	})
	return orders, err
}

// verifyOrder lists the arithmetic inconsistencies in one record.
func verifyOrder(o *domain.Order) []string {
	var problems []string
	if o.ID == "" {
		problems = append(problems, "missing order id")
	}
	sum := decimal.Zero
	for i, l := range o.Lines {
		if want := l.Quantity.Mul(l.UnitPrice); !want.Equal(l.LineTotal) {
			problems = append(problems, fmt.Sprintf("items[%d] line total %s, expected %s", i, l.LineTotal, want))
		}
		sum = sum.Add(l.LineTotal)
	}
	if !sum.Equal(o.Total) {
		problems = append(problems, fmt.Sprintf("order total %s, lines add up to %s", o.Total, sum))
	}
	return problems
}

func newDLQCmd(cfg *config.Config) *cobra.Command {
	var kafkaBrokers, dlqTopic string

	dlqCmd := &cobra.Command{Use: "dlq", Short: "Inspect order events rejected by the analytics consumer"}
	dlqCmd.PersistentFlags().StringVar(&kafkaBrokers, "brokers", cfg.Kafka.BootstrapServers, "Kafka broker addresses")
	dlqCmd.PersistentFlags().StringVar(&dlqTopic, "dlq-topic", cfg.Kafka.DLQTopic, "DLQ topic name")

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show messages in the DLQ",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			client, err := kgo.NewClient(
				kgo.SeedBrokers(strings.Split(kafkaBrokers, ",")...),
				kgo.ConsumeTopics(dlqTopic),
				kgo.FetchMaxWait(5*time.Second),
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}
			defer client.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PARTITION:OFFSET\tKEY\tERROR_TYPE\tERROR_STRING")
			fmt.Fprintln(w, "----------------\t---\t----------\t------------")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			count := 0
			for count < limit {
				fetches := client.PollFetches(ctx)
				if fetches.IsClientClosed() || ctx.Err() != nil || len(fetches.Records()) == 0 {
					break
				}
				fetches.EachRecord(func(record *kgo.Record) {
					if count >= limit {
						return
					}
					errorType, errorString := getErrorHeaders(record.Headers)
					fmt.Fprintf(w, "%d:%d\t%s\t%s\t%s\n", record.Partition, record.Offset, string(record.Key), errorType, errorString)
					count++
				})
			}
			return w.Flush()
		},
	}
	viewCmd.Flags().Int("limit", 10, "Number of messages to show")

	retryCmd := &cobra.Command{
		Use:   "retry [partition:offset]",
		Short: "Send a DLQ message back to the orders topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetTopic, _ := cmd.Flags().GetString("target-topic")
			partition, offset, err := parsePartitionOffset(args[0])
			if err != nil {
				return err
			}
			brokers := strings.Split(kafkaBrokers, ",")

			consumer, err := kgo.NewClient(
				kgo.SeedBrokers(brokers...),
				kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
					dlqTopic: {partition: kgo.NewOffset().At(offset)},
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}
			defer consumer.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			fetches := consumer.PollFetches(ctx)
			if err := fetches.Err(); err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}
			records := fetches.Records()
			if len(records) == 0 {
				return fmt.Errorf("no message at %d:%d", partition, offset)
			}
			record := records[0]

			producer, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
			if err != nil {
				return fmt.Errorf("failed to create producer: %w", err)
			}
			defer producer.Close()

			retry := &kgo.Record{Topic: targetTopic, Key: record.Key, Value: record.Value}
			if err := producer.ProduceSync(ctx, retry).FirstErr(); err != nil {
				return fmt.Errorf("failed to resend message: %w", err)
			}
			color.Green("message %d:%d sent to %s", partition, offset, targetTopic)
			return nil
		},
	}
	retryCmd.Flags().String("target-topic", cfg.Kafka.Topic, "Topic to send the message to")

	dlqCmd.AddCommand(viewCmd, retryCmd)
	return dlqCmd
}

// getErrorHeaders extracts error_type and error_string from Kafka headers.
func getErrorHeaders(headers []kgo.RecordHeader) (string, string) {
	errorType, errorString := "N/A", "N/A"
	for _, h := range headers {
		switch h.Key {
		case "error_type":
			errorType = string(h.Value)
		case "error_string":
			errorString = string(h.Value)
		}
	}
	return errorType, errorString
}

// parsePartitionOffset parses "partition:offset", e.g. "0:123".
func parsePartitionOffset(arg string) (int32, int64, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected partition:offset, e.g. 0:123")
	}
	partition, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid partition: %w", err)
	}
	offset, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset: %w", err)
	}
	return int32(partition), offset, nil
}
