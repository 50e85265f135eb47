package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/repositories"
)

const (
	orderIDPrefix     = "ord_"
	orderNumberPrefix = "MD"
	orderCounterID    = "orders"
	orderCreatedEvent = "order.created"
)

var (
	// ErrOrderInvalidInput indicates the order request failed validation.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderProductUnavailable indicates a product or variant can no longer be purchased.
	ErrOrderProductUnavailable = errors.New("order: product unavailable")
	// ErrOrderInsufficientStock indicates stock could not be reserved.
	ErrOrderInsufficientStock = errors.New("order: insufficient stock")
	// ErrOrderUnavailable indicates a backend failure while creating the order.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// OrderServiceDeps wires the dependencies required by the order service.
type OrderServiceDeps struct {
	Catalog  CatalogService
	Products repositories.ProductRepository
	Orders   repositories.OrderRepository
	Counters repositories.CounterRepository
	Events   OrderEventPublisher
	Clock    func() time.Time
	IDGen    func() string
	Logger   Logger
}

type orderService struct {
	catalog  CatalogService
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	counters repositories.CounterRepository
	events   OrderEventPublisher
	clock    func() time.Time
	newID    func() string
	logger   Logger
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog service is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &orderService{
		catalog:  deps.Catalog,
		products: deps.Products,
		orders:   deps.Orders,
		counters: deps.Counters,
		events:   deps.Events,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

// CreateOrder prices the request from the catalog, reserves stock and persists a pending order.
func (s *orderService) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return Order{}, err
	}

	lines, subtotal, err := s.priceLines(ctx, req.Items)
	if err != nil {
		return Order{}, err
	}

	reserved := reservations(req.Items)
	if err := s.products.ReserveStock(ctx, reserved); err != nil {
		if repositories.IsConflict(err) {
			return Order{}, fmt.Errorf("%w: %v", ErrOrderInsufficientStock, err)
		}
		return Order{}, fmt.Errorf("%w: reserve stock: %v", ErrOrderUnavailable, err)
	}

	now := s.clock()
	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		s.releaseStock(ctx, "", reserved)
		return Order{}, fmt.Errorf("%w: order number: %v", ErrOrderUnavailable, err)
	}

	order := Order{
		ID:                 orderIDPrefix + s.newID(),
		OrderNumber:        number,
		Status:             domain.OrderStatusPending,
		Items:              lines,
		Subtotal:           subtotal,
		CustomerName:       strings.TrimSpace(req.CustomerName),
		CustomerPhone:      strings.TrimSpace(req.CustomerPhone),
		CustomerNote:       trimmedPtr(req.CustomerNote),
		ShippingMethod:     req.ShippingMethod,
		ShippingAddress:    trimmedPtr(req.ShippingAddress),
		ShippingReferences: trimmedPtr(req.ShippingReferences),
		ShippingNote:       trimmedPtr(req.ShippingNote),
		PaymentMethod:      req.PaymentMethod,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.logger(ctx, "order.insert_failed", map[string]any{
			"order": order.ID,
			"error": err,
		})
		s.releaseStock(ctx, order.ID, reserved)
		return Order{}, fmt.Errorf("%w: persist: %v", ErrOrderUnavailable, err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:        orderCreatedEvent,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Subtotal:    order.Subtotal,
		ItemCount:   len(order.Items),
		OccurredAt:  now,
	})
	return order, nil
}

func (s *orderService) priceLines(ctx context.Context, items []domain.OrderItemRequest) ([]domain.OrderLine, decimal.Decimal, error) {
	products := make(map[int]ProductSnapshot)
	lines := make([]domain.OrderLine, 0, len(items))
	subtotal := decimal.Zero

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			fetched, err := s.catalog.GetProductByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, ErrCatalogProductNotFound) {
					return nil, decimal.Zero, fmt.Errorf("%w: product %d", ErrOrderProductUnavailable, item.ProductID)
				}
				return nil, decimal.Zero, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
			}
			products[item.ProductID] = fetched
			product = fetched
		}
		if product.Status != domain.ProductStatusActive {
			return nil, decimal.Zero, fmt.Errorf("%w: %s is %s", ErrOrderProductUnavailable, product.Name, strings.ToLower(string(product.Status)))
		}
		variant, ok := product.Variant(item.VariantID)
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: variant %d of %s", ErrOrderProductUnavailable, item.VariantID, product.Name)
		}

		total := variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(total)
		lines = append(lines, domain.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			VariantID:   variant.ID,
			VariantSKU:  variant.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   variant.Price,
			LineTotal:   total,
		})
	}
	return lines, subtotal, nil
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderCounterID, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d-%06d", orderNumberPrefix, now.Year(), seq), nil
}

// releaseStock returns a reservation whose order could not be completed. Release failures are logged.
func (s *orderService) releaseStock(ctx context.Context, orderID string, reserved []repositories.StockReservation) {
	if err := s.products.ReleaseStock(ctx, reserved); err != nil {
		s.logger(ctx, "order.stock_release_failed", map[string]any{
			"order": orderID,
			"lines": len(reserved),
			"error": err,
		})
	}
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err,
		})
	}
}

func validateOrderRequest(req OrderRequest) error {
	var problems []string
	if len(req.Items) == 0 {
		problems = append(problems, "items are required")
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 || item.VariantID <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d] ids are required", i))
		}
		if item.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d] quantity must be positive", i))
		}
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		problems = append(problems, "customer name is required")
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		problems = append(problems, "customer phone is required")
	}
	if !req.ShippingMethod.Valid() {
		problems = append(problems, "shipping method is invalid")
	}
	if req.ShippingMethod == domain.ShippingMethodDelivery && trimmedPtr(req.ShippingAddress) == nil {
		problems = append(problems, "shipping address is required for delivery")
	}
	if !req.PaymentMethod.Valid() {
		problems = append(problems, "payment method is invalid")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrOrderInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func reservations(items []domain.OrderItemRequest) []repositories.StockReservation {
	index := make(map[int]int, len(items))
	out := make([]repositories.StockReservation, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.VariantID]; ok {
			out[pos].Quantity += item.Quantity
			continue
		}
		index[item.VariantID] = len(out)
		out = append(out, repositories.StockReservation{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
