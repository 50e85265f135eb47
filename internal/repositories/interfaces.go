package repositories

import (
	"context"

	domain "github.com/madu-store/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Orders() OrderRepository
	Settings() SiteSettingsRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// StockReservation requests a stock change for a single variant.
type StockReservation struct {
	ProductID int
	VariantID int
	Quantity  int
}

// ProductRepository reads catalog products and reserves stock at order time.
type ProductRepository interface {
	FindBySlug(ctx context.Context, slug string) (domain.ProductSnapshot, error)
	FindByID(ctx context.Context, productID int) (domain.ProductSnapshot, error)
	// ReserveStock decrements every reservation atomically or none at all. Shortfalls report a conflict.
	ReserveStock(ctx context.Context, reservations []StockReservation) error
	// ReleaseStock returns previously reserved quantities to stock.
	ReleaseStock(ctx context.Context, reservations []StockReservation) error
}

// OrderRepository persists submitted orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
}

// SiteSettingsRepository reads the storefront settings document.
type SiteSettingsRepository interface {
	Get(ctx context.Context) (domain.SiteSettings, error)
}

// CounterRepository issues monotonically increasing sequence values.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// CartStateRepository stores raw persisted cart envelopes by key. It satisfies cart.Storage.
type CartStateRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// HealthRepository verifies backend connectivity for readiness probes.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
