package notification

import (
	"fmt"
	"strings"
	"time"

	"grocery-ordering-system/internal/core/domain"
)

// FormatOrder renders the order summary every channel delivers.
// The output depends only on the order, so all channels carry the same text.
func FormatOrder(o domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n", o.ID)
	fmt.Fprintf(&b, "Customer: %s\n", o.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", o.Phone)
	fmt.Fprintf(&b, "Address: %s\n", o.Address)
	fmt.Fprintf(&b, "Time: %s\n", o.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString("Items:\n")
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "- %s - %s x %s = %s\n", l.ItemName, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	fmt.Fprintf(&b, "Total: %s", o.Total)
	return b.String()
}
