package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/madu-store/api/internal/cart"
	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/platform/httpx"
	"github.com/madu-store/api/internal/platform/requestctx"
	"github.com/madu-store/api/internal/services"
)

// SessionRunner grants exclusive access to a cart session. *services.SessionManager satisfies it.
type SessionRunner interface {
	With(ctx context.Context, id string, fn func(*services.CartSession) error) error
}

// CartHandlers exposes the per-session cart endpoints.
type CartHandlers struct {
	sessions SessionRunner
}

// NewCartHandlers constructs cart handlers on top of the session manager.
func NewCartHandlers(sessions SessionRunner) *CartHandlers {
	return &CartHandlers{sessions: sessions}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items", h.setItems)
	r.Patch("/items/{variantId}", h.updateQuantity)
	r.Delete("/items/{variantId}", h.removeItem)
	r.Put("/open", h.setOpen)
}

type cartItemPayload struct {
	ProductID   int                `json:"product_id"`
	ProductName string             `json:"product_name"`
	ProductSlug string             `json:"product_slug"`
	VariantID   int                `json:"variant_id"`
	VariantSKU  string             `json:"variant_sku"`
	Price       string             `json:"price"`
	Quantity    int                `json:"quantity"`
	LineTotal   string             `json:"line_total"`
	Attributes  []attributePayload `json:"attributes"`
	ImageURL    *string            `json:"image_url,omitempty"`
}

type notificationPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type orderLinePayload struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   int    `json:"variant_id"`
	VariantSKU  string `json:"variant_sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type orderPayload struct {
	ID             string             `json:"id"`
	OrderNumber    string             `json:"order_number"`
	Status         string             `json:"status"`
	Subtotal       string             `json:"subtotal"`
	ShippingMethod string             `json:"shipping_method"`
	PaymentMethod  string             `json:"payment_method"`
	Items          []orderLinePayload `json:"items"`
	CreatedAt      string             `json:"created_at,omitempty"`
}

type sessionView struct {
	SessionID     string                `json:"session_id"`
	State         string                `json:"state"`
	Open          bool                  `json:"open"`
	Items         []cartItemPayload     `json:"items"`
	TotalItems    int                   `json:"total_items"`
	TotalPrice    string                `json:"total_price"`
	Messages      []string              `json:"messages"`
	Notifications []notificationPayload `json:"notifications"`
	HandoffURL    string                `json:"handoff_url,omitempty"`
	Order         *orderPayload         `json:"order,omitempty"`
}

type cartItemRequest struct {
	ProductID   int                `json:"product_id"`
	ProductName string             `json:"product_name"`
	ProductSlug string             `json:"product_slug"`
	VariantID   int                `json:"variant_id"`
	VariantSKU  string             `json:"variant_sku"`
	Price       *decimal.Decimal   `json:"price"`
	Quantity    *int               `json:"quantity"`
	Attributes  []attributePayload `json:"attributes"`
	ImageURL    *string            `json:"image_url"`
}

type setItemsRequest struct {
	Items []cartItemRequest `json:"items"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type setOpenRequest struct {
	Open *bool `json:"open"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		return cartOutcome(session), nil
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		if err := tolerateStorage(ctx, session.Cart.ClearCart(ctx)); err != nil {
			return services.CheckoutOutcome{}, err
		}
		return cartOutcome(session), nil
	})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req cartItemRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}
	item, err := req.toLineItem()
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_item", err.Error(), http.StatusBadRequest))
		return
	}

	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		if err := tolerateStorage(ctx, session.Cart.AddItem(ctx, item)); err != nil {
			return services.CheckoutOutcome{}, err
		}
		return cartOutcome(session), nil
	})
}

func (h *CartHandlers) setItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setItemsRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}
	items := make([]domain.CartLineItem, 0, len(req.Items))
	for i, raw := range req.Items {
		item, err := raw.toLineItem()
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_item", err.Error(), http.StatusBadRequest).WithDetails(map[string]any{"index": i}))
			return
		}
		items = append(items, item)
	}

	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		if err := tolerateStorage(ctx, session.Cart.SetItems(ctx, items)); err != nil {
			return services.CheckoutOutcome{}, err
		}
		return cartOutcome(session), nil
	})
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variantID, ok := variantIDParam(ctx, w, r)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		if err := tolerateStorage(ctx, session.Cart.UpdateQuantity(ctx, variantID, *req.Quantity)); err != nil {
			return services.CheckoutOutcome{}, err
		}
		return cartOutcome(session), nil
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variantID, ok := variantIDParam(ctx, w, r)
	if !ok {
		return
	}

	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		if err := tolerateStorage(ctx, session.Cart.RemoveItem(ctx, variantID)); err != nil {
			return services.CheckoutOutcome{}, err
		}
		return cartOutcome(session), nil
	})
}

func (h *CartHandlers) setOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setOpenRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}
	if req.Open == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "open is required", http.StatusBadRequest))
		return
	}

	runSession(w, r, h.sessions, func(ctx context.Context, session *services.CartSession) (services.CheckoutOutcome, error) {
		session.Cart.SetOpen(*req.Open)
		return cartOutcome(session), nil
	})
}

// runSession executes fn under the session lock and writes the resulting session view.
func runSession(w http.ResponseWriter, r *http.Request, sessions SessionRunner, fn func(context.Context, *services.CartSession) (services.CheckoutOutcome, error)) {
	ctx := r.Context()
	if sessions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart sessions are unavailable", http.StatusServiceUnavailable))
		return
	}

	var view sessionView
	err := sessions.With(ctx, requestctx.CartSession(ctx), func(session *services.CartSession) error {
		outcome, err := fn(ctx, session)
		if err != nil {
			return err
		}
		view = buildSessionView(session, outcome)
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, view)
}

// tolerateStorage keeps the in-memory mutation when only persistence failed.
func tolerateStorage(ctx context.Context, err error) error {
	if err != nil && errors.Is(err, cart.ErrStorageUnavailable) {
		requestctx.Logger(ctx).Warn("cart state not persisted", zap.Error(err))
		return nil
	}
	return err
}

func cartOutcome(session *services.CartSession) services.CheckoutOutcome {
	return services.CheckoutOutcome{
		State:    session.Checkout.State(),
		Messages: session.Checkout.Messages(),
	}
}

func buildSessionView(session *services.CartSession, outcome services.CheckoutOutcome) sessionView {
	items := session.Cart.Items()
	view := sessionView{
		SessionID:     session.ID,
		State:         string(outcome.State),
		Open:          session.Cart.IsOpen(),
		Items:         make([]cartItemPayload, 0, len(items)),
		TotalItems:    session.Cart.TotalItems(),
		TotalPrice:    session.Cart.TotalPrice().StringFixed(2),
		Messages:      outcome.Messages,
		Notifications: make([]notificationPayload, 0, len(outcome.Notifications)),
		HandoffURL:    outcome.HandoffURL,
	}
	if view.Messages == nil {
		view.Messages = []string{}
	}
	for _, item := range items {
		view.Items = append(view.Items, cartItemPayload{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSlug: item.ProductSlug,
			VariantID:   item.VariantID,
			VariantSKU:  item.VariantSKU,
			Price:       item.Price.StringFixed(2),
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal().StringFixed(2),
			Attributes:  buildAttributes(item.Attributes),
			ImageURL:    item.ImageURL,
		})
	}
	for _, note := range outcome.Notifications {
		view.Notifications = append(view.Notifications, notificationPayload{
			Level:   string(note.Level),
			Message: note.Message,
		})
	}
	if outcome.Order != nil {
		view.Order = buildOrderPayload(*outcome.Order)
	}
	return view
}

func buildOrderPayload(order domain.Order) *orderPayload {
	payload := &orderPayload{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         string(order.Status),
		Subtotal:       order.Subtotal.StringFixed(2),
		ShippingMethod: string(order.ShippingMethod),
		PaymentMethod:  string(order.PaymentMethod),
		Items:          make([]orderLinePayload, 0, len(order.Items)),
	}
	if !order.CreatedAt.IsZero() {
		payload.CreatedAt = order.CreatedAt.UTC().Format(time.RFC3339)
	}
	for _, line := range order.Items {
		payload.Items = append(payload.Items, orderLinePayload{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			VariantID:   line.VariantID,
			VariantSKU:  line.VariantSKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			LineTotal:   line.LineTotal.StringFixed(2),
		})
	}
	return payload
}

func (req cartItemRequest) toLineItem() (domain.CartLineItem, error) {
	var problems []string
	if req.ProductID <= 0 {
		problems = append(problems, "product_id is required")
	}
	slug := strings.ToLower(strings.TrimSpace(req.ProductSlug))
	if slug == "" {
		problems = append(problems, "product_slug is required")
	}
	if req.VariantID <= 0 {
		problems = append(problems, "variant_id is required")
	}
	if req.Price == nil {
		problems = append(problems, "price is required")
	} else if req.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
		if quantity <= 0 {
			problems = append(problems, "quantity must be positive")
		}
	}
	if len(problems) > 0 {
		return domain.CartLineItem{}, errors.New(strings.Join(problems, "; "))
	}

	item := domain.CartLineItem{
		ProductID:   req.ProductID,
		ProductName: strings.TrimSpace(req.ProductName),
		ProductSlug: slug,
		VariantID:   req.VariantID,
		VariantSKU:  strings.TrimSpace(req.VariantSKU),
		Price:       *req.Price,
		Quantity:    quantity,
	}
	for _, attr := range req.Attributes {
		item.Attributes = append(item.Attributes, domain.Attribute{
			Name:  strings.TrimSpace(attr.Name),
			Value: strings.TrimSpace(attr.Value),
		})
	}
	if req.ImageURL != nil {
		if url := strings.TrimSpace(*req.ImageURL); url != "" {
			item.ImageURL = &url
		}
	}
	return item, nil
}

func variantIDParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "variantId"))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_variant", "variant id must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}

func writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSessionInvalidID):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_session", "cart session id is required", http.StatusBadRequest))
	case errors.Is(err, cart.ErrInvalidItem):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_item", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_invalid_state", "checkout is not at the order form step", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusConflict))
	case errors.Is(err, cart.ErrStorageUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_storage_unavailable", "cart could not be loaded", http.StatusServiceUnavailable))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request timed out", http.StatusServiceUnavailable))
	default:
		requestctx.Logger(ctx).Error("cart session failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "cart session failed", http.StatusInternalServerError))
	}
}
