package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"grocery-ordering-system/internal/analytics"
	"grocery-ordering-system/internal/catalog"
	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/observability"
)

// errSkipped marks a check whose dependency is not configured.
var errSkipped = errors.New("not configured")

// Check describes one diagnostic check.
type Check struct {
	Name     string
	Func     func(ctx context.Context) error
	Error    error
	Duration time.Duration
}

func main() {
	logger := observability.SetupLogger("development")
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	checks := buildChecks(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Println("Running service diagnostics...")
	runChecks(ctx, checks)

	fmt.Println("\n--- Diagnostics report ---")
	failed := 0
	for _, c := range checks {
		took := c.Duration.Round(time.Millisecond)
		switch {
		case c.Error == nil:
			color.Green("[ OK ]     %-22s (%v)", c.Name, took)
		case errors.Is(c.Error, errSkipped):
			color.Yellow("[ SKIP ]   %-22s %v", c.Name, c.Error)
		default:
			failed++
			color.Red("[ FAILED ] %-22s (%v) %v", c.Name, took, c.Error)
		}
	}

	if failed > 0 {
		color.Red("\n%d check(s) failed.", failed)
		os.Exit(1)
	}
	color.Green("\nAll systems nominal.")
}

func runChecks(ctx context.Context, checks []Check) {
	var wg sync.WaitGroup
	for i := range checks {
		wg.Add(1)
		go func(c *Check) {
			defer wg.Done()
			start := time.Now()
			c.Error = c.Func(ctx)
			c.Duration = time.Since(start)
		}(&checks[i])
	}
	wg.Wait()
}

func enabled(cfg *config.Config, channel string) bool {
	for _, c := range cfg.Notification.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

func buildChecks(cfg *config.Config, logger *slog.Logger) []Check {
	checks := []Check{
		{Name: "Order API", Func: func(ctx context.Context) error {
			return checkHTTPHealth(ctx, localURL(cfg.Server.Port)+"/health", logger)
		}},
		{Name: "Catalog", Func: func(ctx context.Context) error {
			return checkCatalog(cfg.Catalog)
		}},
		{Name: "Ledger", Func: func(ctx context.Context) error {
			if cfg.Ledger.Driver == "postgres" {
				return checkPostgres(ctx, cfg.Ledger.DSN, logger)
			}
			return checkWritableDir(cfg.Ledger.Path)
		}},
		{Name: "Redis", Func: func(ctx context.Context) error {
			if cfg.Redis.Addr == "" {
				return errSkipped
			}
			return checkRedis(ctx, cfg.Redis.Addr, logger)
		}},
		{Name: "Kafka", Func: func(ctx context.Context) error {
			brokers := cfg.Kafka.Brokers()
			if len(brokers) == 0 {
				return errSkipped
			}
			return checkKafka(ctx, brokers)
		}},
		{Name: "ClickHouse", Func: func(ctx context.Context) error {
			if cfg.ClickHouse.Addr == "" {
				return errSkipped
			}
			store, err := analytics.Open(ctx, cfg.ClickHouse)
			if err != nil {
				return err
			}
			return store.Close()
		}},
		{Name: "SMTP", Func: func(ctx context.Context) error {
			if !enabled(cfg, domain.ChannelEmail) {
				return errSkipped
			}
			return checkSMTP(ctx, cfg.Notification.Email)
		}},
		{Name: "Chatbot API", Func: func(ctx context.Context) error {
			if !enabled(cfg, domain.ChannelChatBot) {
				return errSkipped
			}
			return checkChatBot(ctx, cfg.Notification.ChatBot, logger)
		}},
		{Name: "Alerter Service", Func: func(ctx context.Context) error {
			return checkHTTPHealth(ctx, localURL(cfg.Server.PortAlerter)+"/health", logger)
		}},
	}
	return checks
}

// localURL turns a listen address such as ":5000" into a URL on localhost.
func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func checkHTTPHealth(ctx context.Context, url string, logger *slog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

func checkCatalog(cfg config.CatalogConfig) error {
	result, err := catalog.Load(cfg.Path, catalog.Columns{Name: cfg.NameColumn, Price: cfg.PriceColumn})
	if err != nil {
		return err
	}
	if len(result.Items) == 0 {
		return fmt.Errorf("catalog %s has no usable rows", cfg.Path)
	}
	return nil
}

// checkWritableDir verifies the ledger file can be created next to its final path.
func checkWritableDir(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".doctor-*")
	if err != nil {
		return fmt.Errorf("ledger directory is not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func checkPostgres(ctx context.Context, dsn string, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			logger.Error("failed to close postgres connection", "error", err)
		}
	}()
	return conn.Ping(ctx)
}

func checkRedis(ctx context.Context, addr string, logger *slog.Logger) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}()
	return rdb.Ping(ctx).Err()
}

func checkKafka(ctx context.Context, brokers []string) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DialTimeout(5*time.Second),
	)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Ping(ctx)
}

// checkSMTP connects and says hello without sending anything.
func checkSMTP(ctx context.Context, cfg config.EmailConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("smtp host is empty")
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()
	if err := client.Hello("service-doctor"); err != nil {
		return err
	}
	return client.Quit()
}

// checkChatBot calls getMe, which validates the bot token without sending a message.
func checkChatBot(ctx context.Context, cfg config.ChatBotConfig, logger *slog.Logger) error {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return fmt.Errorf("bot token or chat id is empty")
	}
	url := fmt.Sprintf("%s/bot%s/getMe", strings.TrimRight(cfg.APIURL, "/"), cfg.BotToken)
	if err := checkHTTPHealth(ctx, url, logger); err != nil {
		// never print the token-bearing URL
		return errors.New(strings.ReplaceAll(err.Error(), cfg.BotToken, "***"))
	}
	return nil
}
