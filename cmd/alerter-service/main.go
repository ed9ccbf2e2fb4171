package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/notification"
	"grocery-ordering-system/internal/observability"
)

// Alert is the part of an Alertmanager alert we forward.
type Alert struct {
	Status string `json:"status"`
	Labels struct {
		Alertname string `json:"alertname"`
		Severity  string `json:"severity"`
	} `json:"labels"`
	Annotations struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
	} `json:"annotations"`
}

// AlertWebhook is the Alertmanager webhook payload.
type AlertWebhook struct {
	Alerts []Alert `json:"alerts"`
}

// TextSender posts a plain text message to the operators' chat.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

func formatAlert(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(a.Status), a.Labels.Alertname)
	fmt.Fprintf(&b, "Severity: %s\n", a.Labels.Severity)
	fmt.Fprintf(&b, "Summary: %s", a.Annotations.Summary)
	if a.Annotations.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", a.Annotations.Description)
	}
	return b.String()
}

func newAlertHandler(sender TextSender, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var webhook AlertWebhook
		if err := json.NewDecoder(r.Body).Decode(&webhook); err != nil {
			logger.Error("failed to decode webhook", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		forwarded := 0
		for _, alert := range webhook.Alerts {
			logger.Info("alert received",
				"status", alert.Status,
				"alertname", alert.Labels.Alertname,
				"severity", alert.Labels.Severity,
				"summary", alert.Annotations.Summary,
			)
			if sender == nil {
				continue
			}
			if err := sender.SendText(r.Context(), formatAlert(alert)); err != nil {
				logger.Error("failed to forward alert", "alertname", alert.Labels.Alertname, "error", err)
				continue
			}
			forwarded++
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"received": len(webhook.Alerts), "forwarded": forwarded})
	}
}

func main() {
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("The alerter-service is launched", "env", cfg.App.Env)

	// Alerts go to the same chat as order notifications.
	var sender TextSender
	if cfg.Notification.ChatBot.BotToken != "" && cfg.Notification.ChatBot.ChatID != "" {
		sender = notification.NewChatBotChannel(cfg.Notification.ChatBot, observability.NewHTTPClient(cfg.Notification.Timeout()))
	} else {
		logger.Warn("chatbot is not configured, alerts are only logged")
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/alert", newAlertHandler(sender, logger))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "OK"}); err != nil {
			logger.Error("Failed to write health response", "error", err)
		}
	})

	addr := cfg.Server.PortAlerter
	if addr == "" || addr == ":" {
		addr = ":8081"
	}
	logger.Info("Alerter service started", "addr", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
