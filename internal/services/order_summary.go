package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/madu-store/api/internal/domain"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// BuildOrderSummary renders the chat message announcing a new order. Address details are
// only included for home delivery.
func BuildOrderSummary(order Order, data CustomerData) string {
	var b strings.Builder
	b.WriteString("*New order #")
	b.WriteString(order.OrderNumber)
	b.WriteString("*\n\n")

	writeSummaryLine(&b, "Customer", data.Name)
	writeSummaryLine(&b, "Phone", data.Phone)
	writeSummaryLine(&b, "Shipping", data.ShippingMethod.Label())
	if data.ShippingMethod == domain.ShippingMethodDelivery {
		writeSummaryLine(&b, "Address", data.ShippingAddress)
		writeSummaryLine(&b, "References", data.ShippingReferences)
		writeSummaryLine(&b, "Delivery note", data.ShippingNote)
	}
	writeSummaryLine(&b, "Payment", data.PaymentMethod.Label())
	writeSummaryLine(&b, "Note", data.Note)

	return strings.TrimRight(b.String(), "\n")
}

func writeSummaryLine(b *strings.Builder, label, value string) {
	value = plainText(value)
	if value == "" {
		return
	}
	b.WriteString("*")
	b.WriteString(label)
	b.WriteString(":* ")
	b.WriteString(value)
	b.WriteString("\n")
}

// plainText strips markup and collapses the value onto a single line.
func plainText(value string) string {
	cleaned := html.UnescapeString(plainTextPolicy.Sanitize(value))
	return strings.Join(strings.Fields(cleaned), " ")
}
