package domain

// Well-known channel names used in configuration and in channelStatus.
const (
	ChannelLog     = "log"
	ChannelEmail   = "email"
	ChannelChatBot = "chatbot"
	ChannelEvents  = "events"
)

// Delivery states reported to the client per channel.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Notification is what every channel receives for one accepted order.
// Body is the rendered summary, identical for all channels.
type Notification struct {
	Order Order
	Body  string
}

// NotificationOutcome is the result of one dispatch attempt on one channel.
type NotificationOutcome struct {
	Channel   string `json:"channel"`
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail,omitempty"`
}

// Status returns the client-facing delivery state.
func (o NotificationOutcome) Status() string {
	if o.Delivered {
		return DeliverySent
	}
	return DeliveryFailed
}

// Receipt is returned by the order service once the order is in the ledger.
type Receipt struct {
	Order    Order
	Outcomes []NotificationOutcome
}

// ChannelStatus maps each attempted channel to "sent" or "failed".
func (r Receipt) ChannelStatus() map[string]string {
	status := make(map[string]string, len(r.Outcomes))
	for _, o := range r.Outcomes {
		status[o.Channel] = o.Status()
	}
	return status
}
