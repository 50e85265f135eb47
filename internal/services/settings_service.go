package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/madu-store/api/internal/repositories"
)

// ErrSettingsUnavailable indicates the settings backend failed.
var ErrSettingsUnavailable = errors.New("settings: unavailable")

// SiteSettingsServiceDeps wires the dependencies required by the site settings service.
type SiteSettingsServiceDeps struct {
	Settings repositories.SiteSettingsRepository
}

type siteSettingsService struct {
	settings repositories.SiteSettingsRepository
}

// NewSiteSettingsService constructs a SiteSettingsService validating required dependencies.
func NewSiteSettingsService(deps SiteSettingsServiceDeps) (SiteSettingsService, error) {
	if deps.Settings == nil {
		return nil, errors.New("settings service: settings repository is required")
	}
	return &siteSettingsService{settings: deps.Settings}, nil
}

// GetSiteSettings returns the stored settings. A store that was never configured yields empty settings.
func (s *siteSettingsService) GetSiteSettings(ctx context.Context) (SiteSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if repositories.IsNotFound(err) {
			return SiteSettings{}, nil
		}
		return SiteSettings{}, fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}
	return settings, nil
}
