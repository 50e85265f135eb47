package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/madu-store/api/internal/repositories/memory"
)

func pickupCustomer() map[string]any {
	return map[string]any{
		"name":            "Ana Perez",
		"phone":           "1155550000",
		"shipping_method": "pickup",
		"payment_method":  "cash",
	}
}

func TestCheckoutHandlersReconcileThenOrder(t *testing.T) {
	stack := newTestStack(t, testSeed())
	const session = "checkout-1"

	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/cart/items", session, shirtItem(6, "40.00")))
	decodeView(t, stack.do(t, http.MethodPut, "/api/v1/cart/open", session, map[string]any{"open": true}))

	view := decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", session, nil))
	if view.State != "cart" {
		t.Fatalf("expected to stay in cart after discrepancies, got %s", view.State)
	}
	if len(view.Items) != 1 || view.Items[0].Price != "45.00" || view.Items[0].Quantity != 4 {
		t.Fatalf("expected reconciled line at 45.00 x 4, got %+v", view.Items)
	}
	if len(view.Messages) != 2 {
		t.Fatalf("expected price and stock messages, got %v", view.Messages)
	}
	if len(view.Notifications) != 2 || view.Notifications[0].Level != "error" || view.Notifications[1].Level != "warning" {
		t.Fatalf("expected error then warning notifications, got %+v", view.Notifications)
	}

	view = decodeView(t, stack.do(t, http.MethodGet, "/api/v1/cart", session, nil))
	if len(view.Notifications) != 0 || len(view.Messages) != 2 {
		t.Fatalf("notifications are transient but messages persist, got %+v", view)
	}

	view = decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", session, nil))
	if view.State != "form" || len(view.Notifications) != 0 || len(view.Messages) != 0 {
		t.Fatalf("expected clean transition to form, got %+v", view)
	}

	view = decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout/order", session, pickupCustomer()))
	if view.State != "cart" || view.Open || len(view.Items) != 0 {
		t.Fatalf("expected reset session after order, got %+v", view)
	}
	if view.Order == nil || view.Order.OrderNumber != "MD-2026-000001" || view.Order.Subtotal != "180.00" {
		t.Fatalf("unexpected order %+v", view.Order)
	}
	if len(view.Notifications) != 1 || view.Notifications[0].Level != "success" || !strings.Contains(view.Notifications[0].Message, "MD-2026-000001") {
		t.Fatalf("unexpected notifications %+v", view.Notifications)
	}

	const prefix = "https://wa.me/5491123456789?text="
	if !strings.HasPrefix(view.HandoffURL, prefix) {
		t.Fatalf("unexpected handoff url %q", view.HandoffURL)
	}
	message, err := url.PathUnescape(strings.TrimPrefix(view.HandoffURL, prefix))
	if err != nil {
		t.Fatalf("unescape handoff message: %v", err)
	}
	for _, want := range []string{"MD-2026-000001", "Ana Perez", "Store pickup", "4 x Linen Shirt (S)", "$180.00"} {
		if !strings.Contains(message, want) {
			t.Fatalf("handoff message missing %q:\n%s", want, message)
		}
	}

	product, err := stack.registry.Products().FindByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if variant, _ := product.Variant(101); variant.Stock != 0 {
		t.Fatalf("expected stock reserved, remaining %d", variant.Stock)
	}
}

func TestCheckoutHandlersRemovesArchivedProducts(t *testing.T) {
	stack := newTestStack(t, testSeed())
	const session = "checkout-2"

	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/cart/items", session, map[string]any{
		"product_id": 3, "product_name": "Wool Scarf", "product_slug": "wool-scarf", "variant_id": 301, "price": "28.00",
	}))
	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/cart/items", session, mugItem(1)))

	view := decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", session, nil))
	if view.State != "cart" || len(view.Items) != 1 || view.Items[0].VariantID != 201 {
		t.Fatalf("expected archived line removed, got %+v", view)
	}
	if len(view.Notifications) != 1 || view.Notifications[0].Level != "error" {
		t.Fatalf("expected a single stock notification, got %+v", view.Notifications)
	}
}

func TestCheckoutHandlersEmptyCartIsNoop(t *testing.T) {
	stack := newTestStack(t, testSeed())

	view := decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", "checkout-3", nil))
	if view.State != "cart" || len(view.Notifications) != 0 {
		t.Fatalf("expected no-op, got %+v", view)
	}
}

func TestCheckoutHandlersOrderRequiresFormStep(t *testing.T) {
	stack := newTestStack(t, testSeed())
	const session = "checkout-4"
	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/cart/items", session, mugItem(1)))

	body := decodeError(t, stack.do(t, http.MethodPost, "/api/v1/checkout/order", session, pickupCustomer()), http.StatusConflict)
	if body["error"] != "checkout_invalid_state" {
		t.Fatalf("expected checkout_invalid_state, got %v", body["error"])
	}
}

func TestCheckoutHandlersRejectsIncompleteCustomerData(t *testing.T) {
	stack := newTestStack(t, testSeed())

	body := decodeError(t, stack.do(t, http.MethodPost, "/api/v1/checkout/order", "checkout-5", map[string]any{
		"name":            "Ana",
		"shipping_method": "delivery",
		"payment_method":  "bitcoin",
	}), http.StatusBadRequest)

	fields, _ := body["fields"].([]any)
	got := make([]string, 0, len(fields))
	for _, f := range fields {
		got = append(got, f.(string))
	}
	if strings.Join(got, ",") != "phone,shipping_address,payment_method" {
		t.Fatalf("unexpected invalid fields %v", got)
	}
}

func TestCheckoutHandlersMissingContactKeepsForm(t *testing.T) {
	seed := testSeed()
	seed.Settings = memory.SeedSettings{StoreName: "Madu"}
	stack := newTestStack(t, seed)
	const session = "checkout-6"

	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/cart/items", session, mugItem(2)))
	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", session, nil))

	view := decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout/order", session, pickupCustomer()))
	if view.State != "form" || len(view.Items) != 1 || view.Order != nil || view.HandoffURL != "" {
		t.Fatalf("expected form retained without an order, got %+v", view)
	}
	if len(view.Notifications) != 1 || view.Notifications[0].Level != "error" {
		t.Fatalf("expected configuration error notification, got %+v", view.Notifications)
	}

	product, err := stack.registry.Products().FindByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if variant, _ := product.Variant(201); variant.Stock != 30 {
		t.Fatalf("expected untouched stock, got %d", variant.Stock)
	}
}

func TestCheckoutHandlersNavigation(t *testing.T) {
	stack := newTestStack(t, testSeed())
	const session = "checkout-7"

	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/cart/items", session, mugItem(1)))
	decodeView(t, stack.do(t, http.MethodPut, "/api/v1/cart/open", session, map[string]any{"open": true}))
	if view := decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", session, nil)); view.State != "form" {
		t.Fatalf("expected form, got %s", view.State)
	}

	view := decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout/back", session, nil))
	if view.State != "cart" || !view.Open || len(view.Items) != 1 {
		t.Fatalf("back to cart keeps the drawer and items, got %+v", view)
	}

	decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout", session, nil))
	view = decodeView(t, stack.do(t, http.MethodPost, "/api/v1/checkout/shop", session, nil))
	if view.State != "cart" || view.Open || len(view.Items) != 1 {
		t.Fatalf("go to shop closes the drawer and keeps items, got %+v", view)
	}
}
