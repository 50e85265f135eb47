package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/madu-store/api/internal/domain"
	pfirestore "github.com/madu-store/api/internal/platform/firestore"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber        string              `firestore:"orderNumber"`
	Status             string              `firestore:"status"`
	Items              []orderLineDocument `firestore:"items"`
	Subtotal           string              `firestore:"subtotal"`
	CustomerName       string              `firestore:"customerName"`
	CustomerPhone      string              `firestore:"customerPhone"`
	CustomerNote       *string             `firestore:"customerNote,omitempty"`
	ShippingMethod     string              `firestore:"shippingMethod"`
	ShippingAddress    *string             `firestore:"shippingAddress,omitempty"`
	ShippingReferences *string             `firestore:"shippingReferences,omitempty"`
	ShippingNote       *string             `firestore:"shippingNote,omitempty"`
	PaymentMethod      string              `firestore:"paymentMethod"`
	CreatedAt          time.Time           `firestore:"createdAt"`
	UpdatedAt          time.Time           `firestore:"updatedAt"`
}

type orderLineDocument struct {
	ProductID   int    `firestore:"productId"`
	ProductName string `firestore:"productName"`
	VariantID   int    `firestore:"variantId"`
	VariantSKU  string `firestore:"variantSku"`
	Quantity    int    `firestore:"quantity"`
	UnitPrice   string `firestore:"unitPrice"`
	LineTotal   string `firestore:"lineTotal"`
}

// OrderRepository implements repositories.OrderRepository on the orders collection.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{base: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)}, nil
}

// Insert creates the order document; an existing id is a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	_, err := r.base.Create(ctx, order.ID, encodeOrder(order))
	return err
}

// FindByID implements repositories.OrderRepository.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data)
}

func encodeOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:        order.OrderNumber,
		Status:             string(order.Status),
		Subtotal:           order.Subtotal.String(),
		CustomerName:       order.CustomerName,
		CustomerPhone:      order.CustomerPhone,
		CustomerNote:       order.CustomerNote,
		ShippingMethod:     string(order.ShippingMethod),
		ShippingAddress:    order.ShippingAddress,
		ShippingReferences: order.ShippingReferences,
		ShippingNote:       order.ShippingNote,
		PaymentMethod:      string(order.PaymentMethod),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
		Items:              make([]orderLineDocument, 0, len(order.Items)),
	}
	for _, line := range order.Items {
		doc.Items = append(doc.Items, orderLineDocument{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			VariantID:   line.VariantID,
			VariantSKU:  line.VariantSKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.String(),
			LineTotal:   line.LineTotal.String(),
		})
	}
	return doc
}

func decodeOrder(id string, doc orderDocument) (domain.Order, error) {
	subtotal, err := decimal.NewFromString(doc.Subtotal)
	if err != nil {
		return domain.Order{}, fmt.Errorf("firestore orders %s: subtotal: %w", id, err)
	}
	order := domain.Order{
		ID:                 id,
		OrderNumber:        doc.OrderNumber,
		Status:             domain.OrderStatus(doc.Status),
		Subtotal:           subtotal,
		CustomerName:       doc.CustomerName,
		CustomerPhone:      doc.CustomerPhone,
		CustomerNote:       doc.CustomerNote,
		ShippingMethod:     domain.ShippingMethod(doc.ShippingMethod),
		ShippingAddress:    doc.ShippingAddress,
		ShippingReferences: doc.ShippingReferences,
		ShippingNote:       doc.ShippingNote,
		PaymentMethod:      domain.PaymentMethod(doc.PaymentMethod),
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
		Items:              make([]domain.OrderLine, 0, len(doc.Items)),
	}
	for _, line := range doc.Items {
		unit, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			return domain.Order{}, fmt.Errorf("firestore orders %s: unit price: %w", id, err)
		}
		total, err := decimal.NewFromString(line.LineTotal)
		if err != nil {
			return domain.Order{}, fmt.Errorf("firestore orders %s: line total: %w", id, err)
		}
		order.Items = append(order.Items, domain.OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			VariantID:   line.VariantID,
			VariantSKU:  line.VariantSKU,
			Quantity:    line.Quantity,
			UnitPrice:   unit,
			LineTotal:   total,
		})
	}
	return order, nil
}
