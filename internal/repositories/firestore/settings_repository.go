package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/madu-store/api/internal/domain"
	pfirestore "github.com/madu-store/api/internal/platform/firestore"
)

const (
	siteCollection    = "site"
	siteSettingsDocID = "settings"
)

type siteSettingsDocument struct {
	StoreName   string    `firestore:"storeName"`
	WhatsAppURL *string   `firestore:"whatsappUrl,omitempty"`
	Phone       *string   `firestore:"phone,omitempty"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// SiteSettingsRepository reads the site/settings document.
type SiteSettingsRepository struct {
	base *pfirestore.BaseRepository[siteSettingsDocument]
}

// NewSiteSettingsRepository constructs a Firestore-backed settings repository.
func NewSiteSettingsRepository(provider *pfirestore.Provider) (*SiteSettingsRepository, error) {
	if provider == nil {
		return nil, errors.New("site settings repository requires firestore provider")
	}
	return &SiteSettingsRepository{base: pfirestore.NewBaseRepository[siteSettingsDocument](provider, siteCollection)}, nil
}

// Get implements repositories.SiteSettingsRepository. A missing document reports not found.
func (r *SiteSettingsRepository) Get(ctx context.Context) (domain.SiteSettings, error) {
	doc, err := r.base.Get(ctx, siteSettingsDocID)
	if err != nil {
		return domain.SiteSettings{}, err
	}
	return domain.SiteSettings{
		StoreName:   doc.Data.StoreName,
		WhatsAppURL: doc.Data.WhatsAppURL,
		Phone:       doc.Data.Phone,
		UpdatedAt:   doc.Data.UpdatedAt,
	}, nil
}

// Put replaces the settings document.
func (r *SiteSettingsRepository) Put(ctx context.Context, settings domain.SiteSettings) error {
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}
	_, err := r.base.Set(ctx, siteSettingsDocID, siteSettingsDocument{
		StoreName:   settings.StoreName,
		WhatsAppURL: settings.WhatsAppURL,
		Phone:       settings.Phone,
		UpdatedAt:   settings.UpdatedAt,
	})
	return err
}
