// Package firestore implements the repositories on Cloud Firestore.
package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/madu-store/api/internal/platform/firestore"
	"github.com/madu-store/api/internal/repositories"
)

// Registry implements repositories.Registry on a shared Firestore provider.
type Registry struct {
	provider *pfirestore.Provider
	products *ProductRepository
	orders   *OrderRepository
	settings *SiteSettingsRepository
	counters *CounterRepository
}

// NewRegistry wires every Firestore repository to provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	settings, err := NewSiteSettingsRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider: provider,
		products: products,
		orders:   orders,
		settings: settings,
		counters: counters,
	}, nil
}

// Close releases the Firestore client.
func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

// Products implements repositories.Registry.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Orders implements repositories.Registry.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Settings implements repositories.Registry.
func (r *Registry) Settings() repositories.SiteSettingsRepository { return r.settings }

// Counters implements repositories.Registry.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health implements repositories.Registry.
func (r *Registry) Health() repositories.HealthRepository { return r.provider }
