package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrHandoffInvalidInput indicates the hand-off link cannot be built.
var ErrHandoffInvalidInput = errors.New("handoff: invalid input")

// WhatsAppHandoff builds https://<host>/<number>?text=<message> deep links.
type WhatsAppHandoff struct {
	Host           string
	CurrencySymbol string
}

// NewWhatsAppHandoff returns a hand-off targeting host, defaulting to wa.me.
func NewWhatsAppHandoff(host, currencySymbol string) *WhatsAppHandoff {
	host = strings.Trim(strings.TrimSpace(host), "/")
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	if host == "" {
		host = "wa.me"
	}
	if currencySymbol == "" {
		currencySymbol = "$"
	}
	return &WhatsAppHandoff{Host: host, CurrencySymbol: currencySymbol}
}

// Handoff appends the per-item summary to message and returns the deep link for the browser to open.
func (h *WhatsAppHandoff) Handoff(_ context.Context, phone string, items []CartLineItem, message string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrHandoffInvalidInput)
	}
	text := message
	if block := h.itemsBlock(items); block != "" {
		text = strings.TrimRight(message, "\n") + "\n\n" + block
	}
	link := url.URL{
		Scheme:   "https",
		Host:     h.Host,
		Path:     "/" + phone,
		RawQuery: "text=" + encodeMessage(text),
	}
	return link.String(), nil
}

func (h *WhatsAppHandoff) itemsBlock(items []CartLineItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("*Products:*\n")
	total := decimal.Zero
	for _, item := range items {
		line := item.LineTotal()
		total = total.Add(line)
		fmt.Fprintf(&b, "• %d x %s", item.Quantity, plainText(item.ProductName))
		if len(item.Attributes) > 0 {
			values := make([]string, 0, len(item.Attributes))
			for _, attr := range item.Attributes {
				values = append(values, plainText(attr.Value))
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(values, " / "))
		}
		fmt.Fprintf(&b, " - %s%s\n", h.CurrencySymbol, line.StringFixed(2))
	}
	fmt.Fprintf(&b, "*Total:* %s%s", h.CurrencySymbol, total.StringFixed(2))
	return b.String()
}

// encodeMessage percent-encodes text the way browsers encode a URI component, with spaces as %20.
func encodeMessage(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
