package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dev := newLogger("DEV", &buf)
	dev.Debug("picked milk")
	assert.Contains(t, buf.String(), "msg=\"picked milk\"")

	buf.Reset()
	prod := newLogger("production", &buf)
	prod.Debug("hidden")
	assert.Empty(t, buf.String())
	prod.Info("order placed", "order_id", "o-1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "order placed", rec["msg"])
	assert.Equal(t, "o-1", rec["order_id"])
}

func TestLoggerMiddleware_AddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger("production", &buf)

	h := middleware.RequestID(NewLoggerMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		LoggerFromContext(r.Context(), nil).Info("handling order")
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader("{}"))
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "handling order", rec["msg"])
	assert.Equal(t, "req-42", rec["request_id"])
	assert.Equal(t, http.MethodPost, rec["method"])
	assert.Equal(t, "/api/order", rec["path"])
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))

	other := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, other, LoggerFromContext(WithLogger(context.Background(), other), fallback))
}
