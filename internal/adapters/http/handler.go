package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"grocery-ordering-system/internal/core/domain"
	"grocery-ordering-system/internal/core/ports"
	"grocery-ordering-system/internal/observability"
)

// maxOrderBody bounds the size of an order request body.
const maxOrderBody = 1 << 20

// OrderHandler serves the catalog search and order placement endpoints.
type OrderHandler struct {
	catalog ports.CatalogIndex
	service ports.OrderService
	logger  *slog.Logger
}

func NewOrderHandler(catalog ports.CatalogIndex, service ports.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		catalog: catalog,
		service: service,
		logger:  logger,
	}
}

type placeOrderRequest struct {
	Customer string             `json:"customer"`
	Phone    string             `json:"phone"`
	Address  string             `json:"address"`
	Items    []orderLineRequest `json:"items"`
}

// Quantity is decoded raw: clients send both numbers and numeric strings,
// and the price resolver decides what is acceptable.
type orderLineRequest struct {
	Item     string          `json:"item"`
	Quantity json.RawMessage `json:"quantity"`
}

type placeOrderResponse struct {
	OrderID       string            `json:"orderId"`
	Total         json.Number       `json:"total"`
	ChannelStatus map[string]string `json:"channelStatus"`
}

func (r placeOrderRequest) toDomain() domain.OrderRequest {
	req := domain.OrderRequest{
		Customer: r.Customer,
		Phone:    r.Phone,
		Address:  r.Address,
		Items:    make([]domain.OrderLineInput, len(r.Items)),
	}
	for i, line := range r.Items {
		req.Items[i] = domain.OrderLineInput{ItemName: line.Item, Quantity: rawQuantity(line.Quantity)}
	}
	return req
}

func rawQuantity(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		if s, err := strconv.Unquote(string(raw)); err == nil {
			return s
		}
	}
	return string(raw)
}

// HandleSearchItems returns every catalog item whose name contains q.
func (h *OrderHandler) HandleSearchItems(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, items, h.logger)
}

// HandlePlaceOrder validates, prices, records and announces an order.
func (h *OrderHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	var req placeOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody)).Decode(&req); err != nil {
		observability.OrderRejected("invalid_body")
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := h.service.PlaceOrder(r.Context(), req.toDomain())
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			observability.OrderRejected(string(verr.Kind))
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_failed",
				Field:   verr.Field,
				Message: verr.Error(),
			}, logger)

		case errors.Is(err, domain.ErrLedgerUnavailable):
			observability.OrderRejected("ledger")
			writeJSONError(w, "failed to record order", http.StatusInternalServerError)

		default:
			observability.OrderRejected("internal")
			logger.Error("unexpected error while placing order", "error", err)
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	observability.OrderPlaced()
	writeJSON(w, http.StatusOK, placeOrderResponse{
		OrderID:       receipt.Order.ID,
		Total:         json.Number(receipt.Order.Total.String()),
		ChannelStatus: receipt.ChannelStatus(),
	}, logger)
}
