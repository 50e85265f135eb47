package services

import (
	"context"

	domain "github.com/madu-store/api/internal/domain"
)

// Domain aliases keep service signatures short.
type (
	CartLineItem     = domain.CartLineItem
	ProductSnapshot  = domain.ProductSnapshot
	ValidationResult = domain.ValidationResult
	OrderRequest     = domain.OrderRequest
	Order            = domain.Order
	SiteSettings     = domain.SiteSettings
	CustomerData     = domain.CustomerData
	Notification     = domain.Notification
	OrderEvent       = domain.OrderEvent
)

// CatalogService exposes read access to storefront products.
type CatalogService interface {
	GetProductBySlug(ctx context.Context, slug string) (ProductSnapshot, error)
	GetProductByID(ctx context.Context, productID int) (ProductSnapshot, error)
}

// CartValidator reconciles cart lines against the live catalog.
type CartValidator interface {
	ValidateCart(ctx context.Context, items []CartLineItem) (ValidationResult, error)
}

// OrderService creates storefront orders.
type OrderService interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// SiteSettingsService reads storefront configuration.
type SiteSettingsService interface {
	GetSiteSettings(ctx context.Context) (SiteSettings, error)
}

// MessagingHandoff turns a finished order into a shareable chat deep link.
type MessagingHandoff interface {
	Handoff(ctx context.Context, phone string, items []CartLineItem, message string) (string, error)
}

// OrderEventPublisher emits order lifecycle events to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// CartStore is the cart state the checkout orchestrator drives. *cart.Store satisfies it.
type CartStore interface {
	Items() []CartLineItem
	SetItems(ctx context.Context, items []CartLineItem) error
	ClearCart(ctx context.Context) error
	SetOpen(open bool)
}

// Logger records structured service events.
type Logger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}
