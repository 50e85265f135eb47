package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/madu-store/api/internal/domain"
)

var (
	// ErrInvalidItem indicates a line item that cannot enter the cart.
	ErrInvalidItem = errors.New("cart: invalid item")
	// ErrStorageUnavailable wraps persistence failures. The in-memory mutation is kept.
	ErrStorageUnavailable = errors.New("cart: storage unavailable")
)

// Store owns the ordered line items of one shopping session and persists them on every mutation.
// The open flag mirrors the cart drawer and is never persisted.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	key     string
	items   []domain.CartLineItem
	open    bool
}

// NewStore builds an empty store bound to the given storage key.
func NewStore(storage Storage, key string) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultStorageKey
	}
	return &Store{storage: storage, key: key}
}

// Load builds a store and restores any items previously persisted under key.
func Load(ctx context.Context, storage Storage, key string) (*Store, error) {
	store := NewStore(storage, key)
	data, err := store.storage.Get(ctx, store.key)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStorageUnavailable, store.key, err)
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, err
	}
	store.items = items
	return store, nil
}

// Key returns the storage key backing the store.
func (s *Store) Key() string {
	return s.key
}

// AddItem merges the incoming quantity into an existing line with the same variant, or appends a new line.
// Price and attributes of an existing line are left untouched.
func (s *Store) AddItem(ctx context.Context, item domain.CartLineItem) error {
	if item.VariantID <= 0 {
		return fmt.Errorf("%w: variant id is required", ErrInvalidItem)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidItem)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.items {
		if s.items[i].VariantID == item.VariantID {
			s.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item.Clone())
	}
	return s.persistLocked(ctx)
}

// RemoveItem drops every line for the variant.
func (s *Store) RemoveItem(ctx context.Context, variantID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, variantID)
}

// UpdateQuantity replaces the quantity of a line in place. Non-positive quantities remove the line.
func (s *Store) UpdateQuantity(ctx context.Context, variantID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, variantID)
	}
	for i := range s.items {
		if s.items[i].VariantID == variantID {
			s.items[i].Quantity = quantity
		}
	}
	return s.persistLocked(ctx)
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return s.persistLocked(ctx)
}

// SetItems replaces the cart contents wholesale. Lines without a positive quantity are discarded.
func (s *Store) SetItems(ctx context.Context, items []domain.CartLineItem) error {
	next := make([]domain.CartLineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		next = append(next, item.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = next
	return s.persistLocked(ctx)
}

// Items returns a copy of the current lines in cart order.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.CloneItems(s.items)
	if out == nil {
		out = []domain.CartLineItem{}
	}
	return out
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// TotalPrice folds price*quantity over every line.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalItems folds quantity over every line.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// IsOpen reports whether the cart drawer is open.
func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// SetOpen toggles the cart drawer flag without touching storage.
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

func (s *Store) removeLocked(ctx context.Context, variantID int) error {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.VariantID != variantID {
			kept = append(kept, item)
		}
	}
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = domain.CartLineItem{}
	}
	s.items = kept
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := encodeItems(s.items)
	if err != nil {
		return fmt.Errorf("cart: encode state: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrStorageUnavailable, s.key, err)
	}
	return nil
}
