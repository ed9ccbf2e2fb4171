package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-ordering-system/internal/adapters/messaging/mock"
	"grocery-ordering-system/internal/adapters/storage/file"
	"grocery-ordering-system/internal/app"
	"grocery-ordering-system/internal/catalog"
	"grocery-ordering-system/internal/config"
	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/core/ports"
	"grocery-ordering-system/internal/notification"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *catalog.Index {
	return catalog.NewIndex([]domain.CatalogItem{
		{Name: "Milk", UnitPrice: decimal.NewFromInt(30), Attributes: map[string]string{"Category": "Dairy"}},
		{Name: "Bread", UnitPrice: decimal.NewFromInt(25)},
		{Name: "Almond Milk", UnitPrice: decimal.RequireFromString("120.50")},
	})
}

type failingLedger struct{}

func (failingLedger) Append(context.Context, domain.Order) error {
	return errors.New("disk full")
}

func newRouter(idx ports.CatalogIndex, ledger ports.OrderLedger, channels ...notification.Channel) http.Handler {
	logger := discardLogger()
	dispatcher := notification.NewDispatcher(channels, notification.DispatcherConfig{Timeout: 2 * time.Second}, logger)
	service := app.NewOrderService(idx, ledger, dispatcher, logger)
	h := NewOrderHandler(idx, service, logger)

	r := chi.NewRouter()
	r.Get("/api/items", h.HandleSearchItems)
	r.Post("/api/order", h.HandlePlaceOrder)
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHandleSearchItems(t *testing.T) {
	router := newRouter(testCatalog(), failingLedger{})

	req := httptest.NewRequest(http.MethodGet, "/api/items?q=MILK", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Milk", items[0]["name"])
	assert.Equal(t, "Almond Milk", items[1]["name"])
}

func TestHandleSearchItems_NoMatchesIsEmptyArray(t *testing.T) {
	router := newRouter(testCatalog(), failingLedger{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items?q=caviar", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHandlePlaceOrder_EndToEnd(t *testing.T) {
	// --- Arrange ---
	ledgerPath := filepath.Join(t.TempDir(), "orders.log")
	ledger, err := file.OpenLedger(ledgerPath)
	require.NoError(t, err)
	defer ledger.Close()

	var botCalls int
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		botCalls++
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer bot.Close()

	router := newRouter(testCatalog(), ledger,
		notification.NewLogChannel("", discardLogger()),
		notification.NewChatBotChannel(config.ChatBotConfig{APIURL: bot.URL, BotToken: "t", ChatID: "1"}, bot.Client()),
	)

	payload := `{"customer":"Asha","phone":"9876543210","address":"12 MG Road","items":[{"item":"Milk","quantity":2}]}`

	// --- Act ---
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(payload)))

	// --- Assert ---
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["orderId"])
	assert.Equal(t, float64(60), body["total"])
	assert.Equal(t, map[string]any{"log": "sent", "chatbot": "sent"}, body["channelStatus"])
	assert.Equal(t, 1, botCalls)

	stored, err := file.FindOrder(ledgerPath, body["orderId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", stored.Phone)
	assert.Equal(t, "Asha", stored.CustomerName)
	assert.True(t, decimal.NewFromInt(60).Equal(stored.Total))
}

func TestHandlePlaceOrder_ChatBotDownStillSucceeds(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "orders.log")
	ledger, err := file.OpenLedger(ledgerPath)
	require.NoError(t, err)
	defer ledger.Close()

	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer bot.Close()

	router := newRouter(testCatalog(), ledger,
		notification.NewLogChannel("", discardLogger()),
		notification.NewChatBotChannel(config.ChatBotConfig{APIURL: bot.URL, BotToken: "t", ChatID: "1"}, bot.Client()),
	)

	payload := `{"customer":"Ravi","phone":"+919876543210","address":"5 Park St","items":[{"item":"Milk","quantity":"2"},{"item":"Bread","quantity":1}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(payload)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, float64(85), body["total"])
	assert.Equal(t, map[string]any{"log": "sent", "chatbot": "failed"}, body["channelStatus"])

	_, err = file.FindOrder(ledgerPath, body["orderId"].(string))
	assert.NoError(t, err, "order must be in the ledger even though a channel failed")
}

func TestHandlePlaceOrder_LedgerFailure(t *testing.T) {
	ch := mock.NewChannel(domain.ChannelLog)
	router := newRouter(testCatalog(), failingLedger{}, ch)

	payload := `{"customer":"Asha","phone":"9876543210","address":"12 MG Road","items":[{"item":"Milk","quantity":2}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(payload)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "failed to record order"}, decodeBody(t, rec))
	assert.Equal(t, 0, ch.Calls(), "no notification for an unrecorded order")
}

func TestHandlePlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantError string
		wantField string
	}{
		{
			name:      "malformed json",
			payload:   `{"customer":`,
			wantError: "invalid request body",
		},
		{
			name:      "missing customer",
			payload:   `{"phone":"9876543210","address":"x","items":[{"item":"Milk","quantity":1}]}`,
			wantError: "validation_failed",
			wantField: "customer",
		},
		{
			name:      "bad phone",
			payload:   `{"customer":"A","phone":"12345","address":"x","items":[{"item":"Milk","quantity":1}]}`,
			wantError: "validation_failed",
			wantField: "phone",
		},
		{
			name:      "empty items",
			payload:   `{"customer":"A","phone":"9876543210","address":"x","items":[]}`,
			wantError: "validation_failed",
			wantField: "items",
		},
		{
			name:      "non numeric quantity",
			payload:   `{"customer":"A","phone":"9876543210","address":"x","items":[{"item":"Milk","quantity":"two"}]}`,
			wantError: "validation_failed",
			wantField: "items[0].quantity",
		},
		{
			name:      "missing quantity",
			payload:   `{"customer":"A","phone":"9876543210","address":"x","items":[{"item":"Milk"}]}`,
			wantError: "validation_failed",
			wantField: "items[0].quantity",
		},
		{
			name:      "zero quantity",
			payload:   `{"customer":"A","phone":"9876543210","address":"x","items":[{"item":"Milk","quantity":0}]}`,
			wantError: "validation_failed",
			wantField: "items[0].quantity",
		},
		{
			name:      "quantity with huge exponent",
			payload:   `{"customer":"A","phone":"9876543210","address":"x","items":[{"item":"Milk","quantity":1e999999999}]}`,
			wantError: "validation_failed",
			wantField: "items[0].quantity",
		},
		{
			name:      "quantity with tiny exponent",
			payload:   `{"customer":"A","phone":"9876543210","address":"x","items":[{"item":"Milk","quantity":"1e-999999999"}]}`,
			wantError: "validation_failed",
			wantField: "items[0].quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := mock.NewChannel(domain.ChannelLog)
			ledger, err := file.OpenLedger(filepath.Join(t.TempDir(), "orders.log"))
			require.NoError(t, err)
			defer ledger.Close()
			router := newRouter(testCatalog(), ledger, ch)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(tt.payload)))

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
				assert.NotEmpty(t, body["message"])
			}
			assert.Equal(t, 0, ch.Calls())
		})
	}
}

func TestRawQuantity(t *testing.T) {
	assert.Equal(t, "2", rawQuantity(json.RawMessage(`2`)))
	assert.Equal(t, "1.5", rawQuantity(json.RawMessage(`"1.5"`)))
	assert.Equal(t, "", rawQuantity(json.RawMessage(`null`)))
	assert.Equal(t, "", rawQuantity(nil))
	assert.Equal(t, "true", rawQuantity(json.RawMessage(`true`)))
}
