package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	pfirestore "github.com/madu-store/api/internal/platform/firestore"
	"github.com/madu-store/api/internal/repositories"
)

const cartSessionsCollection = "cart_sessions"

type cartStateDocument struct {
	Envelope  string     `firestore:"envelope"`
	UpdatedAt time.Time  `firestore:"updatedAt"`
	ExpiresAt *time.Time `firestore:"expiresAt,omitempty"`
}

// CartStateRepository stores persisted cart envelopes, one document per storage key. When a
// TTL is configured, expiresAt is set so a Firestore TTL policy can purge stale carts.
type CartStateRepository struct {
	base  *pfirestore.BaseRepository[cartStateDocument]
	ttl   time.Duration
	clock func() time.Time
}

// NewCartStateRepository constructs a Firestore-backed cart state repository.
func NewCartStateRepository(provider *pfirestore.Provider, ttl time.Duration) (*CartStateRepository, error) {
	if provider == nil {
		return nil, errors.New("cart state repository requires firestore provider")
	}
	return &CartStateRepository{
		base:  pfirestore.NewBaseRepository[cartStateDocument](provider, cartSessionsCollection),
		ttl:   ttl,
		clock: time.Now,
	}, nil
}

// Get returns the stored envelope or nil when no cart was saved under key.
func (r *CartStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := r.base.Get(ctx, documentID(key))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if doc.Data.ExpiresAt != nil && doc.Data.ExpiresAt.Before(r.clock()) {
		return nil, nil
	}
	return []byte(doc.Data.Envelope), nil
}

// Set stores the envelope under key.
func (r *CartStateRepository) Set(ctx context.Context, key string, value []byte) error {
	now := r.clock().UTC()
	doc := cartStateDocument{Envelope: string(value), UpdatedAt: now}
	if r.ttl > 0 {
		expires := now.Add(r.ttl)
		doc.ExpiresAt = &expires
	}
	_, err := r.base.Set(ctx, documentID(key), doc)
	return err
}

// documentID maps a storage key onto a valid document id.
func documentID(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), "/", "_")
}
