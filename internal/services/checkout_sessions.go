package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/madu-store/api/internal/cart"
)

// ErrSessionInvalidID indicates a blank cart session identifier.
var ErrSessionInvalidID = errors.New("cart session: invalid id")

// CartSession bundles the cart store and checkout state machine owned by one shopper.
type CartSession struct {
	ID       string
	Cart     *cart.Store
	Checkout *CheckoutSession
}

// SessionManagerDeps wires the dependencies required by the session manager.
type SessionManagerDeps struct {
	Storage    cart.Storage
	StorageKey string
	TTL        time.Duration
	Clock      func() time.Time
	Logger     Logger
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *CartSession
	lastSeen time.Time
}

// SessionManager owns the live cart sessions. Operations on one session are serialised;
// different sessions proceed in parallel.
type SessionManager struct {
	mu         sync.Mutex
	entries    map[string]*sessionEntry
	storage    cart.Storage
	storageKey string
	ttl        time.Duration
	clock      func() time.Time
	logger     Logger
}

// NewSessionManager constructs a SessionManager. A nil storage keeps carts in process memory.
func NewSessionManager(deps SessionManagerDeps) *SessionManager {
	storage := deps.Storage
	if storage == nil {
		storage = cart.NewMemoryStorage()
	}
	key := strings.TrimSpace(deps.StorageKey)
	if key == "" {
		key = cart.DefaultStorageKey
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &SessionManager{
		entries:    make(map[string]*sessionEntry),
		storage:    storage,
		storageKey: key,
		ttl:        deps.TTL,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}
}

// With runs fn with exclusive access to the session, restoring its cart from storage on
// first use.
func (m *SessionManager) With(ctx context.Context, id string, fn func(*CartSession) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrSessionInvalidID
	}

	entry := m.acquire(id)
	defer entry.mu.Unlock()

	if entry.session == nil {
		store, err := m.restore(ctx, id)
		if err != nil {
			return err
		}
		entry.session = &CartSession{
			ID:       id,
			Cart:     store,
			Checkout: NewCheckoutSession(id, store),
		}
	}
	entry.lastSeen = m.clock()
	return fn(entry.session)
}

// Sweep evicts sessions idle for longer than the configured TTL and returns how many were
// removed. Persisted carts survive eviction and are restored on the next request.
func (m *SessionManager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := now.UTC().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, entry := range m.entries {
		if !entry.mu.TryLock() {
			continue
		}
		if entry.lastSeen.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
		entry.mu.Unlock()
	}
	return removed
}

// Len reports the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// acquire returns the locked entry that is still registered for id. Sweep may evict an entry
// between lookup and lock, in which case the lookup is repeated.
func (m *SessionManager) acquire(id string) *sessionEntry {
	for {
		entry := m.entry(id)
		entry.mu.Lock()
		if m.registered(id, entry) {
			return entry
		}
		entry.mu.Unlock()
	}
}

func (m *SessionManager) registered(id string, entry *sessionEntry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id] == entry
}

func (m *SessionManager) entry(id string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		entry = &sessionEntry{lastSeen: m.clock()}
		m.entries[id] = entry
	}
	return entry
}

func (m *SessionManager) restore(ctx context.Context, id string) (*cart.Store, error) {
	key := m.storageKey + ":" + id
	store, err := cart.Load(ctx, m.storage, key)
	switch {
	case err == nil:
		return store, nil
	case errors.Is(err, cart.ErrCorruptState), errors.Is(err, cart.ErrUnsupportedVersion):
		m.logger(ctx, "cart.state_discarded", map[string]any{
			"session": id,
			"error":   err,
		})
		return cart.NewStore(m.storage, key), nil
	default:
		return nil, err
	}
}
