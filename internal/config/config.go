package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Channel names accepted in notification.channels.
var knownChannels = map[string]bool{
	"log":     true,
	"email":   true,
	"chatbot": true,
	"events":  true,
}

// CatalogConfig points at the item spreadsheet.
type CatalogConfig struct {
	Path        string `yaml:"path"`
	NameColumn  string `yaml:"name_column"`
	PriceColumn string `yaml:"price_column"`
}

// LedgerConfig selects where accepted orders are recorded.
type LedgerConfig struct {
	Driver string `yaml:"driver"` // "file" or "postgres"
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// RateLimitConfig stores parameters for the per-IP limiter.
type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// LogChannelConfig configures the file log channel.
type LogChannelConfig struct {
	Path string `yaml:"path"`
}

// EmailConfig holds SMTP settings for the email channel.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"` // comma-separated
}

// ChatBotConfig holds Telegram bot settings for the chatbot channel.
type ChatBotConfig struct {
	APIURL   string `yaml:"api_url"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// KafkaConfig is shared by the events channel and the analytics consumer.
type KafkaConfig struct {
	BootstrapServers string `yaml:"bootstrap_servers"`
	Topic            string `yaml:"topic"`
	DLQTopic         string `yaml:"dlq_topic"`
}

// NotificationConfig lists the active channels and how they are driven.
type NotificationConfig struct {
	Channels       []string         `yaml:"channels"`
	TimeoutSeconds int              `yaml:"timeout_seconds"`
	MaxAttempts    int              `yaml:"max_attempts"`
	Log            LogChannelConfig `yaml:"log"`
	Email          EmailConfig      `yaml:"email"`
	ChatBot        ChatBotConfig    `yaml:"chatbot"`
}

// Timeout is the per-channel deadline for one dispatch.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// ClickHouseConfig is used by the analytics tools.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port           string   `yaml:"port"`
		PortAlerter    string   `yaml:"port_alerter"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Redis   struct {
		Addr      string          `yaml:"addr"`
		RateLimit RateLimitConfig `yaml:"rate_limit"`
	} `yaml:"redis"`
	Notification NotificationConfig `yaml:"notification"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	ClickHouse   ClickHouseConfig   `yaml:"clickhouse"`
	Jaeger       struct {
		Port string `yaml:"port"`
	} `yaml:"jaeger"`
}

func Load(configPath string) (*Config, error) {
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(file)
}

// Parse decodes YAML after substituting environment variables into the raw text.
func Parse(raw []byte) (*Config, error) {
	config := &Config{}

	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "production"
	}
	// "${PORT}" expands to nothing when the variable is unset
	if c.Server.Port == "" || c.Server.Port == ":" {
		c.Server.Port = ":5000"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "grocery_dataset_extended.xlsx"
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "file"
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "orders.log"
	}
	if c.Redis.RateLimit.Requests == 0 {
		c.Redis.RateLimit.Requests = 100
	}
	if c.Redis.RateLimit.WindowSeconds == 0 {
		c.Redis.RateLimit.WindowSeconds = 60
	}
	if len(c.Notification.Channels) == 0 {
		c.Notification.Channels = []string{"log"}
	}
	if c.Notification.TimeoutSeconds == 0 {
		c.Notification.TimeoutSeconds = 10
	}
	if c.Notification.MaxAttempts == 0 {
		c.Notification.MaxAttempts = 1
	}
	if c.Notification.Log.Path == "" {
		c.Notification.Log.Path = "notifications.log"
	}
	if c.Notification.Email.Port == 0 {
		c.Notification.Email.Port = 587
	}
	if c.Notification.ChatBot.APIURL == "" {
		c.Notification.ChatBot.APIURL = "https://api.telegram.org"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "orders.placed"
	}
	if c.Kafka.DLQTopic == "" {
		c.Kafka.DLQTopic = c.Kafka.Topic + ".dlq"
	}
}

// Brokers splits the comma-separated bootstrap server list.
func (k KafkaConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(k.BootstrapServers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case "file":
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}

	seen := make(map[string]bool, len(c.Notification.Channels))
	for _, name := range c.Notification.Channels {
		if !knownChannels[name] {
			return fmt.Errorf("unknown notification channel %q", name)
		}
		if seen[name] {
			return fmt.Errorf("notification channel %q listed twice", name)
		}
		seen[name] = true
	}
	if seen["events"] && c.Kafka.BootstrapServers == "" {
		return fmt.Errorf("kafka.bootstrap_servers is required for the events channel")
	}
	if c.Notification.TimeoutSeconds < 0 || c.Notification.MaxAttempts < 0 {
		return fmt.Errorf("notification timeout and attempts must not be negative")
	}
	return nil
}
