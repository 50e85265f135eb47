package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attribute is a display-only name/value pair attached to a cart line, e.g. Color: Red.
type Attribute struct {
	Name  string
	Value string
}

// CartLineItem stores a single variant entry within a shopping cart. VariantID is the identity key.
type CartLineItem struct {
	ProductID   int
	ProductName string
	ProductSlug string
	VariantID   int
	VariantSKU  string
	Price       decimal.Decimal
	Quantity    int
	Attributes  []Attribute
	ImageURL    *string
}

// LineTotal returns price multiplied by quantity.
func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Clone returns a deep copy of the line item.
func (i CartLineItem) Clone() CartLineItem {
	out := i
	if len(i.Attributes) > 0 {
		out.Attributes = append([]Attribute(nil), i.Attributes...)
	}
	if i.ImageURL != nil {
		url := *i.ImageURL
		out.ImageURL = &url
	}
	return out
}

// CloneItems deep copies a slice of cart lines.
func CloneItems(items []CartLineItem) []CartLineItem {
	if items == nil {
		return nil
	}
	out := make([]CartLineItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// ProductStatus enumerates catalog lifecycle states.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Purchasable reports whether products in this status may stay in a cart.
func (s ProductStatus) Purchasable() bool {
	return s != ProductStatusArchived && s != ProductStatusInactive
}

// VariantSnapshot captures the live price and stock of a product variant.
type VariantSnapshot struct {
	ID         int
	SKU        string
	Price      decimal.Decimal
	Stock      int
	Attributes []Attribute
}

// ProductSnapshot is the authoritative product state returned by the catalog.
type ProductSnapshot struct {
	ID          int
	Slug        string
	Name        string
	Description string
	Status      ProductStatus
	ImageURL    *string
	Variants    []VariantSnapshot
	UpdatedAt   time.Time
}

// Variant looks up a variant by identifier.
func (p ProductSnapshot) Variant(id int) (VariantSnapshot, bool) {
	for _, variant := range p.Variants {
		if variant.ID == id {
			return variant, true
		}
	}
	return VariantSnapshot{}, false
}

// ValidationResult describes discrepancies between cart contents and live catalog state.
type ValidationResult struct {
	IsValid         bool
	HasPriceChanges bool
	HasStockIssues  bool
	UpdatedItems    []CartLineItem
	Messages        []string
}

// ShippingMethod enumerates supported fulfilment options.
type ShippingMethod string

const (
	ShippingMethodPickup   ShippingMethod = "PICKUP"
	ShippingMethodDelivery ShippingMethod = "DELIVERY"
)

// Label returns the customer facing label.
func (m ShippingMethod) Label() string {
	switch m {
	case ShippingMethodPickup:
		return "Store pickup"
	case ShippingMethodDelivery:
		return "Home delivery"
	default:
		return string(m)
	}
}

// Valid reports whether the method is a known value.
func (m ShippingMethod) Valid() bool {
	return m == ShippingMethodPickup || m == ShippingMethodDelivery
}

// PaymentMethod enumerates how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
)

// Label returns the customer facing label.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCash:
		return "Cash"
	case PaymentMethodTransfer:
		return "Bank transfer"
	case PaymentMethodCard:
		return "Debit/credit card"
	default:
		return string(m)
	}
}

// Valid reports whether the method is a known value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard:
		return true
	}
	return false
}

// CustomerData is the checkout form submitted by the shopper.
type CustomerData struct {
	Name               string
	Phone              string
	Note               string
	ShippingMethod     ShippingMethod
	ShippingAddress    string
	ShippingReferences string
	ShippingNote       string
	PaymentMethod      PaymentMethod
}

// OrderItemRequest identifies a purchased variant.
type OrderItemRequest struct {
	ProductID int
	VariantID int
	Quantity  int
}

// OrderRequest is submitted to the order service at checkout.
type OrderRequest struct {
	Items              []OrderItemRequest
	CustomerName       string
	CustomerPhone      string
	CustomerNote       *string
	ShippingMethod     ShippingMethod
	ShippingAddress    *string
	ShippingReferences *string
	ShippingNote       *string
	PaymentMethod      PaymentMethod
}

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderLine snapshots a purchased variant at order time.
type OrderLine struct {
	ProductID   int
	ProductName string
	VariantID   int
	VariantSKU  string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Order is a submitted storefront order.
type Order struct {
	ID                 string
	OrderNumber        string
	Status             OrderStatus
	Items              []OrderLine
	Subtotal           decimal.Decimal
	CustomerName       string
	CustomerPhone      string
	CustomerNote       *string
	ShippingMethod     ShippingMethod
	ShippingAddress    *string
	ShippingReferences *string
	ShippingNote       *string
	PaymentMethod      PaymentMethod
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SiteSettings holds the storefront configuration edited from the admin panel.
type SiteSettings struct {
	StoreName   string
	WhatsAppURL *string
	Phone       *string
	UpdatedAt   time.Time
}

// CheckoutState enumerates the checkout steps of a cart session.
type CheckoutState string

const (
	CheckoutStateCart CheckoutState = "cart"
	CheckoutStateForm CheckoutState = "form"
)

// NotificationLevel grades transient user notifications.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient message surfaced to the shopper.
type Notification struct {
	Level   NotificationLevel
	Message string
}

// OrderEvent is published after an order has been persisted.
type OrderEvent struct {
	Type        string
	OrderID     string
	OrderNumber string
	Subtotal    decimal.Decimal
	ItemCount   int
	OccurredAt  time.Time
}
