package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/platform/httpx"
	"github.com/madu-store/api/internal/services"
)

// CheckoutFlow drives the checkout state machine. *services.CheckoutOrchestrator satisfies it.
type CheckoutFlow interface {
	HandleCheckout(ctx context.Context, session *services.CheckoutSession) services.CheckoutOutcome
	HandleCreateOrder(ctx context.Context, session *services.CheckoutSession, data services.CustomerData) (services.CheckoutOutcome, error)
	HandleBackToCart(ctx context.Context, session *services.CheckoutSession) services.CheckoutOutcome
	HandleGoToShop(ctx context.Context, session *services.CheckoutSession) services.CheckoutOutcome
}

// CheckoutHandlers exposes the checkout transitions of the current cart session.
type CheckoutHandlers struct {
	sessions SessionRunner
	flow     CheckoutFlow
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(sessions SessionRunner, flow CheckoutFlow) *CheckoutHandlers {
	return &CheckoutHandlers{sessions: sessions, flow: flow}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.checkout)
	r.Post("/order", h.createOrder)
	r.Post("/back", h.backToCart)
	r.Post("/shop", h.goToShop)
}

type customerDataRequest struct {
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	Note               string `json:"note"`
	ShippingMethod     string `json:"shipping_method"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingReferences string `json:"shipping_references"`
	ShippingNote       string `json:"shipping_note"`
	PaymentMethod      string `json:"payment_method"`
}

func (h *CheckoutHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		return h.flow.HandleCheckout(ctx, session.Checkout), nil
	})
}

func (h *CheckoutHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	ctx := r.Context()
	var req customerDataRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}
	data, fields := req.toCustomerData()
	if len(fields) > 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_customer_data", "customer data is incomplete", http.StatusBadRequest).WithDetails(map[string]any{"fields": fields}))
		return
	}

	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		return h.flow.HandleCreateOrder(ctx, session.Checkout, data)
	})
}

func (h *CheckoutHandlers) backToCart(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		return h.flow.HandleBackToCart(ctx, session.Checkout), nil
	})
}

func (h *CheckoutHandlers) goToShop(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		return h.flow.HandleGoToShop(ctx, session.Checkout), nil
	})
}

func (h *CheckoutHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.flow == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("checkout_unavailable", "checkout is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

// toCustomerData normalises the form and returns the names of invalid fields.
func (req customerDataRequest) toCustomerData() (services.CustomerData, []string) {
	data := services.CustomerData{
		Name:               strings.TrimSpace(req.Name),
		Phone:              strings.TrimSpace(req.Phone),
		Note:               strings.TrimSpace(req.Note),
		ShippingMethod:     domain.ShippingMethod(strings.ToUpper(strings.TrimSpace(req.ShippingMethod))),
		ShippingAddress:    strings.TrimSpace(req.ShippingAddress),
		ShippingReferences: strings.TrimSpace(req.ShippingReferences),
		ShippingNote:       strings.TrimSpace(req.ShippingNote),
		PaymentMethod:      domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
	}

	var fields []string
	if data.Name == "" {
		fields = append(fields, "name")
	}
	if data.Phone == "" {
		fields = append(fields, "phone")
	}
	if !data.ShippingMethod.Valid() {
		fields = append(fields, "shipping_method")
	}
	if data.ShippingMethod == domain.ShippingMethodDelivery && data.ShippingAddress == "" {
		fields = append(fields, "shipping_address")
	}
	if !data.PaymentMethod.Valid() {
		fields = append(fields, "payment_method")
	}
	return data, fields
}
