package kafka

import (
	"encoding/json"
	"fmt"

	"grocery-ordering-system/internal/core/domain"
)

// EventOrderPlaced is the event type carried by every record on the orders topic.
const EventOrderPlaced = "order.placed"

// OrderPlacedEvent is the record value published for each accepted order.
// It carries the full ledger view of the order plus the rendered summary.
type OrderPlacedEvent struct {
	Event   string `json:"event"`
	Summary string `json:"summary,omitempty"`
	domain.Order
}

func EncodeOrderPlaced(n domain.Notification) ([]byte, error) {
	payload, err := json.Marshal(OrderPlacedEvent{Event: EventOrderPlaced, Summary: n.Body, Order: n.Order})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return payload, nil
}

// DecodeOrderPlaced parses a record value and rejects anything that is not
// an order.placed event with an order id.
func DecodeOrderPlaced(value []byte) (*OrderPlacedEvent, error) {
	var ev OrderPlacedEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return nil, fmt.Errorf("invalid order event: %w", err)
	}
	if ev.Event != EventOrderPlaced {
		return nil, fmt.Errorf("unexpected event type %q", ev.Event)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("order event has no order id")
	}
	return &ev, nil
}
