package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"

	"grocery-ordering-system/internal/observability"
)

type orderLine struct {
	Item     string `json:"item"`
	Quantity any    `json:"quantity"`
}

type orderRequest struct {
	Customer string      `json:"customer"`
	Phone    string      `json:"phone"`
	Address  string      `json:"address"`
	Items    []orderLine `json:"items"`
}

type catalogItem struct {
	Name string `json:"name"`
}

func main() {
	baseURL := flag.String("target", "http://localhost:5000", "Base URL of the order API")
	rps := flag.Int("rps", 5, "Orders per second")
	invalidRate := flag.Float64("invalid-rate", 0.1, "Share of deliberately invalid orders")
	flag.Parse()

	logger := observability.SetupLogger("development")
	client := &http.Client{Timeout: 30 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, err := fetchItemNames(ctx, client, *baseURL)
	if err != nil || len(items) == 0 {
		logger.Warn("catalog unavailable, using fixed item names", "error", err)
		items = []string{"Milk", "Bread", "Eggs", "Rice", "Tomato"}
	}
	logger.Info("starting generator", "target", *baseURL, "rps", *rps, "items", len(items))

	ticker := time.NewTicker(time.Second / time.Duration(max(*rps, 1)))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			req := fakeOrder(items)
			if rand.Float64() < *invalidRate {
				req = breakOrder(req)
			}
			go sendOrder(ctx, client, *baseURL, req, logger)
		case <-ctx.Done():
			logger.Info("shutting down generator...")
			return
		}
	}
}

func fetchItemNames(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/items", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var items []catalogItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names, nil
}

func fakePhone() string {
	var b strings.Builder
	b.WriteByte(byte('6' + rand.Intn(4)))
	for i := 0; i < 9; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	if rand.Intn(2) == 0 {
		return "+91" + b.String()
	}
	return b.String()
}

func fakeOrder(items []string) orderRequest {
	addr := faker.GetRealAddress()
	req := orderRequest{
		Customer: faker.Name(),
		Phone:    fakePhone(),
		Address:  fmt.Sprintf("%s, %s", addr.Address, addr.City),
	}
	for n := 1 + rand.Intn(4); n > 0; n-- {
		var qty any = 1 + rand.Intn(5)
		if rand.Intn(3) == 0 {
			qty = fmt.Sprint(qty) // clients also send numeric strings
		}
		req.Items = append(req.Items, orderLine{Item: items[rand.Intn(len(items))], Quantity: qty})
	}
	return req
}

// breakOrder damages one field so the API must reject the order.
func breakOrder(req orderRequest) orderRequest {
	switch rand.Intn(4) {
	case 0:
		req.Customer = ""
	case 1:
		req.Phone = "12345"
	case 2:
		req.Items = nil
	default:
		req.Items[0].Quantity = "lots"
	}
	return req
}

func sendOrder(ctx context.Context, client *http.Client, baseURL string, order orderRequest, logger *slog.Logger) {
	body, err := json.Marshal(order)
	if err != nil {
		logger.Error("failed to marshal order", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/order", bytes.NewReader(body))
	if err != nil {
		logger.Error("failed to build request", "error", err)
		return
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("failed to send order", "request_id", requestID, "error", err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	var result map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != http.StatusOK {
		logger.Warn("order rejected", "request_id", requestID, "status", resp.StatusCode, "response", result)
		return
	}
	logger.Info("order placed", "request_id", requestID, "order_id", result["orderId"], "total", result["total"], "channels", result["channelStatus"])
}

