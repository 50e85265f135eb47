package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/madu-store/api/internal/domain"
)

// SchemaVersion tags the persisted envelope. Bump it when the item layout changes.
const SchemaVersion = 1

// DefaultStorageKey names the persisted cart entry.
const DefaultStorageKey = "cart-storage"

var (
	// ErrUnsupportedVersion indicates persisted state written by a newer schema.
	ErrUnsupportedVersion = errors.New("cart: unsupported persisted state version")
	// ErrCorruptState indicates persisted state that could not be decoded.
	ErrCorruptState = errors.New("cart: corrupt persisted state")
)

// Storage persists raw cart state by key. Get returns nil data and a nil error when nothing is stored.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStorage is an in-process Storage used for tests and single-instance deployments.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

type envelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Items []persistedItem `json:"items"`
}

type persistedAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type persistedItem struct {
	ProductID   int                  `json:"productId"`
	ProductName string               `json:"productName"`
	ProductSlug string               `json:"productSlug"`
	VariantID   int                  `json:"variantId"`
	VariantSKU  string               `json:"variantSku"`
	Price       decimal.Decimal      `json:"price"`
	Quantity    int                  `json:"quantity"`
	Attributes  []persistedAttribute `json:"attributes"`
	ImageURL    *string              `json:"imageUrl,omitempty"`
}

func encodeItems(items []domain.CartLineItem) ([]byte, error) {
	env := envelope{
		Version: SchemaVersion,
		State:   persistedState{Items: make([]persistedItem, 0, len(items))},
	}
	for _, item := range items {
		attrs := make([]persistedAttribute, 0, len(item.Attributes))
		for _, attr := range item.Attributes {
			attrs = append(attrs, persistedAttribute{Name: attr.Name, Value: attr.Value})
		}
		env.State.Items = append(env.State.Items, persistedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSlug: item.ProductSlug,
			VariantID:   item.VariantID,
			VariantSKU:  item.VariantSKU,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Attributes:  attrs,
			ImageURL:    item.ImageURL,
		})
	}
	return json.Marshal(env)
}

func decodeItems(data []byte) ([]domain.CartLineItem, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if env.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, support up to %d", ErrUnsupportedVersion, env.Version, SchemaVersion)
	}

	items := make([]domain.CartLineItem, 0, len(env.State.Items))
	for _, stored := range env.State.Items {
		if stored.Quantity <= 0 {
			continue
		}
		var attrs []domain.Attribute
		if len(stored.Attributes) > 0 {
			attrs = make([]domain.Attribute, 0, len(stored.Attributes))
			for _, attr := range stored.Attributes {
				attrs = append(attrs, domain.Attribute{Name: attr.Name, Value: attr.Value})
			}
		}
		items = append(items, domain.CartLineItem{
			ProductID:   stored.ProductID,
			ProductName: stored.ProductName,
			ProductSlug: stored.ProductSlug,
			VariantID:   stored.VariantID,
			VariantSKU:  stored.VariantSKU,
			Price:       stored.Price,
			Quantity:    stored.Quantity,
			Attributes:  attrs,
			ImageURL:    stored.ImageURL,
		})
	}
	return items, nil
}
