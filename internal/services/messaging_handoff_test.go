package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	domain "github.com/madu-store/api/internal/domain"
)

func TestWhatsAppHandoffBuildsLink(t *testing.T) {
	handoff := NewWhatsAppHandoff("", "$")
	items := []CartLineItem{
		{ProductName: "Tee", Price: dec("20"), Quantity: 2, Attributes: []domain.Attribute{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "M"}}},
		{ProductName: "Mug", Price: dec("7.5"), Quantity: 1},
	}

	link, err := handoff.Handoff(context.Background(), "5491123456789", items, "*New order #MD-2026-000001*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(link, "https://wa.me/5491123456789?text=") {
		t.Fatalf("unexpected link prefix: %s", link)
	}
	if strings.Contains(link, "+") {
		t.Fatalf("expected spaces encoded as %%20, got %s", link)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	text := parsed.Query().Get("text")
	wantLines := []string{
		"*New order #MD-2026-000001*",
		"*Products:*",
		"• 2 x Tee (Red / M) - $40.00",
		"• 1 x Mug - $7.50",
		"*Total:* $47.50",
	}
	for _, line := range wantLines {
		if !strings.Contains(text, line) {
			t.Fatalf("expected message to contain %q, got:\n%s", line, text)
		}
	}
}

func TestWhatsAppHandoffCustomHost(t *testing.T) {
	handoff := NewWhatsAppHandoff("https://api.whatsapp.com/", "€")
	link, err := handoff.Handoff(context.Background(), "123456789", nil, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link != "https://api.whatsapp.com/123456789?text=hello%20world" {
		t.Fatalf("unexpected link %s", link)
	}
}

func TestWhatsAppHandoffRequiresPhone(t *testing.T) {
	_, err := NewWhatsAppHandoff("wa.me", "$").Handoff(context.Background(), " ", nil, "hi")
	if !errors.Is(err, ErrHandoffInvalidInput) {
		t.Fatalf("expected ErrHandoffInvalidInput, got %v", err)
	}
}

func TestBuildOrderSummary(t *testing.T) {
	order := Order{OrderNumber: "MD-2026-000042"}

	t.Run("delivery includes address block", func(t *testing.T) {
		summary := BuildOrderSummary(order, CustomerData{
			Name:               "Ana <b>Diaz</b>",
			Phone:              "1155550000",
			ShippingMethod:     domain.ShippingMethodDelivery,
			ShippingAddress:    "Calle 123",
			ShippingReferences: "Blue door",
			PaymentMethod:      domain.PaymentMethodTransfer,
			Note:               "Gift wrap",
		})
		for _, want := range []string{
			"*New order #MD-2026-000042*",
			"*Customer:* Ana Diaz",
			"*Phone:* 1155550000",
			"*Shipping:* Home delivery",
			"*Address:* Calle 123",
			"*References:* Blue door",
			"*Payment:* Bank transfer",
			"*Note:* Gift wrap",
		} {
			if !strings.Contains(summary, want) {
				t.Fatalf("expected summary to contain %q, got:\n%s", want, summary)
			}
		}
		if strings.Contains(summary, "Delivery note") {
			t.Fatalf("empty delivery note should be omitted:\n%s", summary)
		}
	})

	t.Run("pickup omits address block", func(t *testing.T) {
		summary := BuildOrderSummary(order, CustomerData{
			Name:            "Ana",
			Phone:           "1155550000",
			ShippingMethod:  domain.ShippingMethodPickup,
			ShippingAddress: "Calle 123",
			PaymentMethod:   domain.PaymentMethodCash,
		})
		if strings.Contains(summary, "Address") {
			t.Fatalf("pickup summary should not include address:\n%s", summary)
		}
		if !strings.Contains(summary, "*Shipping:* Store pickup") {
			t.Fatalf("expected pickup label:\n%s", summary)
		}
		if strings.HasSuffix(summary, "\n") {
			t.Fatalf("summary should not end with a newline")
		}
	})
}
