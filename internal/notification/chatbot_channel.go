package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
)

// maxErrorBody caps how much of a failed API response ends up in the outcome.
const maxErrorBody = 512

// ChatBotChannel posts the order summary to a Telegram chat through the Bot API.
type ChatBotChannel struct {
	cfg    config.ChatBotConfig
	client *http.Client
}

func NewChatBotChannel(cfg config.ChatBotConfig, client *http.Client) *ChatBotChannel {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChatBotChannel{cfg: cfg, client: client}
}

func (c *ChatBotChannel) Name() string { return domain.ChannelChatBot }

func (c *ChatBotChannel) Send(ctx context.Context, n domain.Notification) error {
	return c.SendText(ctx, n.Body)
}

// SendText posts arbitrary text to the configured chat.
func (c *ChatBotChannel) SendText(ctx context.Context, text string) error {
	if c.cfg.BotToken == "" || c.cfg.ChatID == "" {
		return backoff.Permanent(errors.New("chatbot channel is missing bot token or chat id"))
	}

	requestBody, err := json.Marshal(map[string]string{
		"chat_id": c.cfg.ChatID,
		"text":    text,
	})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal message: %w", err))
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error repeats the request URL, which contains the bot token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := fmt.Errorf("telegram API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(apiErr)
		}
		return apiErr
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
