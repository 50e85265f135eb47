// Package jobs publishes order lifecycle events to the configured broker.
package jobs

import (
	"strings"
	"time"

	"github.com/madu-store/api/internal/services"
)

// orderEventPayload is the JSON body shared by every broker.
type orderEventPayload struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Subtotal    string    `json:"subtotal"`
	ItemCount   int       `json:"itemCount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func newOrderEventPayload(event services.OrderEvent) orderEventPayload {
	return orderEventPayload{
		Type:        event.Type,
		OrderID:     event.OrderID,
		OrderNumber: event.OrderNumber,
		Subtotal:    event.Subtotal.StringFixed(2),
		ItemCount:   event.ItemCount,
		OccurredAt:  event.OccurredAt.UTC(),
	}
}

func eventAttributes(event services.OrderEvent) map[string]string {
	attrs := make(map[string]string)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	return attrs
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
