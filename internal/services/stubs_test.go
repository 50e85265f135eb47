package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/repositories"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func strPtr(value string) *string {
	return &value
}

type stubProductLookup struct {
	mu       sync.Mutex
	products map[string]ProductSnapshot
	errs     map[string]error
	panics   map[string]bool
	calls    map[string]int
}

func newStubProductLookup(products ...ProductSnapshot) *stubProductLookup {
	lookup := &stubProductLookup{
		products: make(map[string]ProductSnapshot),
		errs:     make(map[string]error),
		panics:   make(map[string]bool),
		calls:    make(map[string]int),
	}
	for _, product := range products {
		lookup.products[product.Slug] = product
	}
	return lookup
}

func (s *stubProductLookup) GetProductBySlug(_ context.Context, slug string) (ProductSnapshot, error) {
	s.mu.Lock()
	s.calls[slug]++
	product, ok := s.products[slug]
	err := s.errs[slug]
	shouldPanic := s.panics[slug]
	s.mu.Unlock()

	if shouldPanic {
		panic("lookup exploded")
	}
	if err != nil {
		return ProductSnapshot{}, err
	}
	if !ok {
		return ProductSnapshot{}, ErrCatalogProductNotFound
	}
	return product, nil
}

func (s *stubProductLookup) callCount(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[slug]
}

type stubProductRepository struct {
	products   map[int]ProductSnapshot
	findErr    error
	reserveErr error
	releaseErr error
	reserved   []repositories.StockReservation
	released   []repositories.StockReservation
}

func (s *stubProductRepository) FindBySlug(_ context.Context, slug string) (ProductSnapshot, error) {
	if s.findErr != nil {
		return ProductSnapshot{}, s.findErr
	}
	for _, product := range s.products {
		if product.Slug == slug {
			return product, nil
		}
	}
	return ProductSnapshot{}, repositories.NewNotFoundError("products.findBySlug", slug)
}

func (s *stubProductRepository) FindByID(_ context.Context, id int) (ProductSnapshot, error) {
	if s.findErr != nil {
		return ProductSnapshot{}, s.findErr
	}
	product, ok := s.products[id]
	if !ok {
		return ProductSnapshot{}, repositories.NewNotFoundError("products.findByID", "missing")
	}
	return product, nil
}

func (s *stubProductRepository) ReserveStock(_ context.Context, reservations []repositories.StockReservation) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = append(s.reserved, reservations...)
	return nil
}

func (s *stubProductRepository) ReleaseStock(_ context.Context, reservations []repositories.StockReservation) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, reservations...)
	return nil
}

type stubOrderRepository struct {
	inserted []Order
	err      error
}

func (s *stubOrderRepository) Insert(_ context.Context, order Order) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, order)
	return nil
}

func (s *stubOrderRepository) FindByID(_ context.Context, id string) (Order, error) {
	for _, order := range s.inserted {
		if order.ID == id {
			return order, nil
		}
	}
	return Order{}, repositories.NewNotFoundError("orders.findByID", id)
}

type stubCounterRepository struct {
	next int64
	err  error
}

func (s *stubCounterRepository) Next(_ context.Context, _ string, step int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next += step
	return s.next, nil
}

type stubSettingsRepository struct {
	settings SiteSettings
	err      error
}

func (s stubSettingsRepository) Get(context.Context) (SiteSettings, error) {
	return s.settings, s.err
}

type stubEventPublisher struct {
	events []OrderEvent
	err    error
}

func (s *stubEventPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type recordedLog struct {
	event  string
	fields map[string]any
}

type logRecorder struct {
	mu      sync.Mutex
	entries []recordedLog
}

func (r *logRecorder) log(_ context.Context, event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedLog{event: event, fields: fields})
}

func (r *logRecorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.event == event {
			return true
		}
	}
	return false
}

func activeProduct(id int, slug, name string, variants ...domain.VariantSnapshot) ProductSnapshot {
	return ProductSnapshot{
		ID:       id,
		Slug:     slug,
		Name:     name,
		Status:   domain.ProductStatusActive,
		Variants: variants,
	}
}

func variant(id int, price string, stock int) domain.VariantSnapshot {
	return domain.VariantSnapshot{ID: id, SKU: "SKU-" + price, Price: dec(price), Stock: stock}
}

func cartLine(productID int, slug, name string, variantID int, price string, qty int) CartLineItem {
	return CartLineItem{
		ProductID:   productID,
		ProductName: name,
		ProductSlug: slug,
		VariantID:   variantID,
		Price:       dec(price),
		Quantity:    qty,
	}
}
