// Package memory implements the repositories on process memory. It backs local development
// and single-instance deployments seeded from a YAML catalog.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/repositories"
)

// Registry implements repositories.Registry on in-memory stores.
type Registry struct {
	products *ProductRepository
	orders   *OrderRepository
	settings *SiteSettingsRepository
	counters *CounterRepository
}

// NewRegistry builds a registry populated from seed.
func NewRegistry(seed Seed) (*Registry, error) {
	products, err := seed.products()
	if err != nil {
		return nil, err
	}
	return &Registry{
		products: NewProductRepository(products...),
		orders:   NewOrderRepository(),
		settings: NewSiteSettingsRepository(seed.settings()),
		counters: NewCounterRepository(),
	}, nil
}

// Close implements repositories.Registry.
func (r *Registry) Close(context.Context) error { return nil }

// Products implements repositories.Registry.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Orders implements repositories.Registry.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Settings implements repositories.Registry.
func (r *Registry) Settings() repositories.SiteSettingsRepository { return r.settings }

// Counters implements repositories.Registry.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health implements repositories.Registry.
func (r *Registry) Health() repositories.HealthRepository { return healthy{} }

type healthy struct{}

func (healthy) Ping(context.Context) error { return nil }

// ProductRepository keeps catalog products keyed by id with a slug index.
type ProductRepository struct {
	mu     sync.RWMutex
	byID   map[int]domain.ProductSnapshot
	bySlug map[string]int
}

// NewProductRepository returns a repository holding products.
func NewProductRepository(products ...domain.ProductSnapshot) *ProductRepository {
	repo := &ProductRepository{
		byID:   make(map[int]domain.ProductSnapshot, len(products)),
		bySlug: make(map[string]int, len(products)),
	}
	for _, product := range products {
		repo.Put(product)
	}
	return repo
}

// Put inserts or replaces a product.
func (r *ProductRepository) Put(product domain.ProductSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if previous, ok := r.byID[product.ID]; ok {
		delete(r.bySlug, previous.Slug)
	}
	r.byID[product.ID] = cloneProduct(product)
	r.bySlug[product.Slug] = product.ID
}

// FindBySlug implements repositories.ProductRepository.
func (r *ProductRepository) FindBySlug(_ context.Context, slug string) (domain.ProductSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySlug[slug]
	if !ok {
		return domain.ProductSnapshot{}, repositories.NewNotFoundError("products.findBySlug", fmt.Sprintf("product %q not found", slug))
	}
	return cloneProduct(r.byID[id]), nil
}

// FindByID implements repositories.ProductRepository.
func (r *ProductRepository) FindByID(_ context.Context, productID int) (domain.ProductSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.byID[productID]
	if !ok {
		return domain.ProductSnapshot{}, repositories.NewNotFoundError("products.findByID", fmt.Sprintf("product %d not found", productID))
	}
	return cloneProduct(product), nil
}

// ReserveStock implements repositories.ProductRepository. All reservations are checked
// before any stock is decremented.
func (r *ProductRepository) ReserveStock(_ context.Context, reservations []repositories.StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	type position struct{ product, variant int }
	positions := make([]position, len(reservations))
	requested := make(map[int]int, len(reservations))
	for i, res := range reservations {
		product, ok := r.byID[res.ProductID]
		if !ok {
			return repositories.NewNotFoundError("products.reserveStock", fmt.Sprintf("product %d not found", res.ProductID))
		}
		idx := -1
		for j, v := range product.Variants {
			if v.ID == res.VariantID {
				idx = j
				break
			}
		}
		if idx < 0 {
			return repositories.NewNotFoundError("products.reserveStock", fmt.Sprintf("variant %d not found", res.VariantID))
		}
		requested[res.VariantID] += res.Quantity
		if available := product.Variants[idx].Stock; available < requested[res.VariantID] {
			return repositories.NewConflictError("products.reserveStock", fmt.Sprintf("variant %d has %d in stock, %d requested", res.VariantID, available, requested[res.VariantID]))
		}
		positions[i] = position{product: res.ProductID, variant: idx}
	}

	for i, res := range reservations {
		pos := positions[i]
		r.byID[pos.product].Variants[pos.variant].Stock -= res.Quantity
	}
	return nil
}

// ReleaseStock implements repositories.ProductRepository. Every variant is resolved before
// any stock is restored.
func (r *ProductRepository) ReleaseStock(_ context.Context, reservations []repositories.StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	indexes := make([]int, len(reservations))
	for i, res := range reservations {
		product, ok := r.byID[res.ProductID]
		if !ok {
			return repositories.NewNotFoundError("products.releaseStock", fmt.Sprintf("product %d not found", res.ProductID))
		}
		indexes[i] = -1
		for j, v := range product.Variants {
			if v.ID == res.VariantID {
				indexes[i] = j
				break
			}
		}
		if indexes[i] < 0 {
			return repositories.NewNotFoundError("products.releaseStock", fmt.Sprintf("variant %d not found", res.VariantID))
		}
	}

	for i, res := range reservations {
		r.byID[res.ProductID].Variants[indexes[i]].Stock += res.Quantity
	}
	return nil
}

func cloneProduct(product domain.ProductSnapshot) domain.ProductSnapshot {
	out := product
	if product.ImageURL != nil {
		url := *product.ImageURL
		out.ImageURL = &url
	}
	out.Variants = make([]domain.VariantSnapshot, len(product.Variants))
	for i, v := range product.Variants {
		out.Variants[i] = v
		out.Variants[i].Attributes = append([]domain.Attribute(nil), v.Attributes...)
	}
	return out
}

// OrderRepository stores orders by id.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository returns an empty order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

// Insert implements repositories.OrderRepository.
func (r *OrderRepository) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return repositories.NewConflictError("orders.insert", fmt.Sprintf("order %s already exists", order.ID))
	}
	order.Items = append([]domain.OrderLine(nil), order.Items...)
	r.orders[order.ID] = order
	return nil
}

// FindByID implements repositories.OrderRepository.
func (r *OrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("orders.findByID", fmt.Sprintf("order %s not found", orderID))
	}
	return order, nil
}

// SiteSettingsRepository holds a single settings document.
type SiteSettingsRepository struct {
	mu       sync.RWMutex
	settings *domain.SiteSettings
}

// NewSiteSettingsRepository returns a repository holding settings.
func NewSiteSettingsRepository(settings domain.SiteSettings) *SiteSettingsRepository {
	repo := &SiteSettingsRepository{}
	repo.Put(settings)
	return repo
}

// Put replaces the stored settings.
func (r *SiteSettingsRepository) Put(settings domain.SiteSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}
	r.settings = &settings
}

// Get implements repositories.SiteSettingsRepository.
func (r *SiteSettingsRepository) Get(context.Context) (domain.SiteSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return domain.SiteSettings{}, repositories.NewNotFoundError("settings.get", "site settings not configured")
	}
	return *r.settings, nil
}

// CounterRepository issues sequence values per counter id.
type CounterRepository struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounterRepository returns counters starting at zero.
func NewCounterRepository() *CounterRepository {
	return &CounterRepository{values: make(map[string]int64)}
}

// Next implements repositories.CounterRepository. A non-positive step advances by one.
func (r *CounterRepository) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if counterID == "" {
		return 0, errors.New("counters.next: counter id is required")
	}
	if step <= 0 {
		step = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[counterID] += step
	return r.values[counterID], nil
}
