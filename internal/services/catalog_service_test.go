package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/repositories"
)

func TestNewCatalogServiceRequiresRepository(t *testing.T) {
	if _, err := NewCatalogService(CatalogServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
}

func TestCatalogServiceGetProductBySlug(t *testing.T) {
	archived := activeProduct(2, "old-vase", "Old Vase")
	archived.Status = domain.ProductStatusArchived
	repo := &stubProductRepository{products: map[int]ProductSnapshot{
		1: activeProduct(1, "linen-shirt", "Linen Shirt"),
		2: archived,
	}}
	svc, err := NewCatalogService(CatalogServiceDeps{Products: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	t.Run("normalises slug", func(t *testing.T) {
		product, err := svc.GetProductBySlug(ctx, "  Linen-Shirt ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if product.ID != 1 {
			t.Fatalf("expected product 1, got %d", product.ID)
		}
	})

	t.Run("returns any status", func(t *testing.T) {
		product, err := svc.GetProductBySlug(ctx, "old-vase")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if product.Status != domain.ProductStatusArchived {
			t.Fatalf("expected archived product, got %s", product.Status)
		}
	})

	t.Run("empty slug", func(t *testing.T) {
		if _, err := svc.GetProductBySlug(ctx, " "); !errors.Is(err, ErrCatalogInvalidInput) {
			t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := svc.GetProductBySlug(ctx, "missing"); !errors.Is(err, ErrCatalogProductNotFound) {
			t.Fatalf("expected ErrCatalogProductNotFound, got %v", err)
		}
	})
}

func TestCatalogServiceTranslatesBackendErrors(t *testing.T) {
	repo := &stubProductRepository{findErr: repositories.NewUnavailableError("products.findByID", errors.New("deadline"))}
	svc, err := NewCatalogService(CatalogServiceDeps{Products: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetProductByID(context.Background(), 7); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
	if _, err := svc.GetProductByID(context.Background(), 0); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}

	repo.findErr = context.Canceled
	if _, err := svc.GetProductByID(context.Background(), 7); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation to pass through, got %v", err)
	}
}

func TestSiteSettingsService(t *testing.T) {
	t.Run("missing document yields empty settings", func(t *testing.T) {
		svc, err := NewSiteSettingsService(SiteSettingsServiceDeps{Settings: stubSettingsRepository{
			err: repositories.NewNotFoundError("settings.get", "site/settings"),
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		settings, err := svc.GetSiteSettings(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.WhatsAppURL != nil || settings.Phone != nil {
			t.Fatalf("expected empty settings, got %+v", settings)
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		svc, err := NewSiteSettingsService(SiteSettingsServiceDeps{Settings: stubSettingsRepository{err: errors.New("boom")}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.GetSiteSettings(context.Background()); !errors.Is(err, ErrSettingsUnavailable) {
			t.Fatalf("expected ErrSettingsUnavailable, got %v", err)
		}
	})
}
