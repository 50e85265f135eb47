package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/madu-store/api/internal/domain"
)

var (
	// ErrCheckoutInvalidState indicates the transition is not allowed from the current step.
	ErrCheckoutInvalidState = errors.New("checkout: invalid state")
	// ErrCheckoutEmptyCart indicates an order was requested for an empty cart.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
)

const (
	msgValidationFailed    = "We couldn't verify your cart. Please try again."
	msgValidationConnError = "Connection error while verifying your cart. Please try again."
	msgStockIssues         = "Some products in your cart are sold out or no longer available. We updated your cart."
	msgPriceChanges        = "Some prices in your cart have changed. Please review your order."
	msgContactMissing      = "The store has no WhatsApp contact configured. Please reach us through another channel."
	msgOrderFailed         = "We couldn't create your order. Please try again."
	msgOrderCreated        = "Order #%s created. Finish the conversation on WhatsApp."
)

// CheckoutSession is the per-shopper checkout state machine. It is not safe for concurrent
// use; SessionManager serialises access.
type CheckoutSession struct {
	ID       string
	Store    CartStore
	state    domain.CheckoutState
	messages []string
}

// NewCheckoutSession starts a session in the cart step.
func NewCheckoutSession(id string, store CartStore) *CheckoutSession {
	return &CheckoutSession{ID: id, Store: store, state: domain.CheckoutStateCart}
}

// State returns the current checkout step.
func (s *CheckoutSession) State() domain.CheckoutState {
	return s.state
}

// Messages returns the discrepancy messages recorded by the last checkout attempt.
func (s *CheckoutSession) Messages() []string {
	return append([]string(nil), s.messages...)
}

// CheckoutOutcome reports what a transition did. Notifications are transient and only
// returned once.
type CheckoutOutcome struct {
	State         domain.CheckoutState
	Messages      []string
	Notifications []Notification
	HandoffURL    string
	Order         *Order
	Validation    *ValidationResult
}

// CheckoutOrchestratorDeps wires the collaborators the checkout flow drives.
type CheckoutOrchestratorDeps struct {
	Validator CartValidator
	Orders    OrderService
	Settings  SiteSettingsService
	Handoff   MessagingHandoff
	Logger    Logger
}

// CheckoutOrchestrator runs checkout transitions against a CheckoutSession. It holds no
// per-session state and may be shared.
type CheckoutOrchestrator struct {
	validator CartValidator
	orders    OrderService
	settings  SiteSettingsService
	handoff   MessagingHandoff
	logger    Logger
}

// NewCheckoutOrchestrator constructs the orchestrator validating required dependencies.
func NewCheckoutOrchestrator(deps CheckoutOrchestratorDeps) (*CheckoutOrchestrator, error) {
	if deps.Validator == nil {
		return nil, errors.New("checkout orchestrator: cart validator is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout orchestrator: order service is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("checkout orchestrator: settings service is required")
	}
	if deps.Handoff == nil {
		return nil, errors.New("checkout orchestrator: messaging handoff is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &CheckoutOrchestrator{
		validator: deps.Validator,
		orders:    deps.Orders,
		settings:  deps.Settings,
		handoff:   deps.Handoff,
		logger:    logger,
	}, nil
}

// HandleCheckout validates the cart and advances to the form step when nothing changed.
// Discrepancies are committed back to the cart and reported; the session stays in the
// cart step.
func (o *CheckoutOrchestrator) HandleCheckout(ctx context.Context, session *CheckoutSession) CheckoutOutcome {
	items := session.Store.Items()
	if len(items) == 0 {
		return session.outcome()
	}

	session.messages = nil
	result, err := o.validator.ValidateCart(ctx, items)
	if err != nil {
		o.logger(ctx, "checkout.validation_failed", map[string]any{
			"session": session.ID,
			"items":   len(items),
			"error":   err,
		})
		session.messages = []string{msgValidationConnError}
		return session.outcome(Notification{Level: domain.NotificationError, Message: msgValidationFailed})
	}

	if result.IsValid {
		session.state = domain.CheckoutStateForm
		out := session.outcome()
		out.Validation = &result
		return out
	}

	if err := session.Store.SetItems(ctx, result.UpdatedItems); err != nil {
		o.logger(ctx, "checkout.cart_persist_failed", map[string]any{
			"session": session.ID,
			"error":   err,
		})
	}
	session.messages = append([]string(nil), result.Messages...)

	var notes []Notification
	if result.HasStockIssues {
		notes = append(notes, Notification{Level: domain.NotificationError, Message: msgStockIssues})
	}
	if result.HasPriceChanges {
		notes = append(notes, Notification{Level: domain.NotificationWarning, Message: msgPriceChanges})
	}
	out := session.outcome(notes...)
	out.Validation = &result
	return out
}

// HandleCreateOrder submits the order, builds the chat hand-off link and resets the
// session. Configuration and submission failures are reported as notifications and keep
// the session in the form step.
func (o *CheckoutOrchestrator) HandleCreateOrder(ctx context.Context, session *CheckoutSession, data CustomerData) (CheckoutOutcome, error) {
	if session.state != domain.CheckoutStateForm {
		return session.outcome(), fmt.Errorf("%w: order requires the %s step, session is in %s", ErrCheckoutInvalidState, domain.CheckoutStateForm, session.state)
	}
	items := session.Store.Items()
	if len(items) == 0 {
		return session.outcome(), ErrCheckoutEmptyCart
	}

	phone, ok := o.contactNumber(ctx, session)
	if !ok {
		return session.outcome(Notification{Level: domain.NotificationError, Message: msgContactMissing}), nil
	}

	order, err := o.orders.CreateOrder(ctx, buildOrderRequest(items, data))
	if err != nil {
		o.logger(ctx, "checkout.order_failed", map[string]any{
			"session": session.ID,
			"error":   err,
		})
		return session.outcome(Notification{Level: domain.NotificationError, Message: msgOrderFailed}), nil
	}

	link, err := o.handoff.Handoff(ctx, phone, items, BuildOrderSummary(order, data))
	if err != nil {
		o.logger(ctx, "checkout.handoff_failed", map[string]any{
			"session": session.ID,
			"order":   order.ID,
			"error":   err,
		})
	}

	if err := session.Store.ClearCart(ctx); err != nil {
		o.logger(ctx, "checkout.cart_clear_failed", map[string]any{
			"session": session.ID,
			"order":   order.ID,
			"error":   err,
		})
	}
	session.Store.SetOpen(false)
	session.state = domain.CheckoutStateCart
	session.messages = nil

	o.logger(ctx, "checkout.order_created", map[string]any{
		"session":     session.ID,
		"order":       order.ID,
		"orderNumber": order.OrderNumber,
	})

	out := session.outcome(Notification{
		Level:   domain.NotificationSuccess,
		Message: fmt.Sprintf(msgOrderCreated, order.OrderNumber),
	})
	out.HandoffURL = link
	out.Order = &order
	return out, nil
}

// HandleBackToCart returns from the form to the cart step.
func (o *CheckoutOrchestrator) HandleBackToCart(_ context.Context, session *CheckoutSession) CheckoutOutcome {
	session.state = domain.CheckoutStateCart
	return session.outcome()
}

// HandleGoToShop resets the checkout and closes the cart.
func (o *CheckoutOrchestrator) HandleGoToShop(_ context.Context, session *CheckoutSession) CheckoutOutcome {
	session.state = domain.CheckoutStateCart
	session.Store.SetOpen(false)
	return session.outcome()
}

func (o *CheckoutOrchestrator) contactNumber(ctx context.Context, session *CheckoutSession) (string, bool) {
	settings, err := o.settings.GetSiteSettings(ctx)
	if err != nil {
		o.logger(ctx, "checkout.settings_failed", map[string]any{
			"session": session.ID,
			"error":   err,
		})
		return "", false
	}
	phone, ok := ResolveContactNumber(settings)
	if !ok {
		o.logger(ctx, "checkout.contact_missing", map[string]any{"session": session.ID})
	}
	return phone, ok
}

func (s *CheckoutSession) outcome(notes ...Notification) CheckoutOutcome {
	return CheckoutOutcome{
		State:         s.state,
		Messages:      s.Messages(),
		Notifications: notes,
	}
}

func buildOrderRequest(items []CartLineItem, data CustomerData) OrderRequest {
	req := OrderRequest{
		Items:              make([]domain.OrderItemRequest, 0, len(items)),
		CustomerName:       strings.TrimSpace(data.Name),
		CustomerPhone:      strings.TrimSpace(data.Phone),
		CustomerNote:       optionalString(data.Note),
		ShippingMethod:     data.ShippingMethod,
		ShippingAddress:    optionalString(data.ShippingAddress),
		ShippingReferences: optionalString(data.ShippingReferences),
		ShippingNote:       optionalString(data.ShippingNote),
		PaymentMethod:      data.PaymentMethod,
	}
	for _, item := range items {
		req.Items = append(req.Items, domain.OrderItemRequest{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return req
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
