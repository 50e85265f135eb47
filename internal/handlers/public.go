package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/madu-store/api/internal/domain"
	"github.com/madu-store/api/internal/platform/httpx"
	"github.com/madu-store/api/internal/services"
)

// PublicHandlers exposes unauthenticated catalog and store configuration endpoints.
type PublicHandlers struct {
	catalog  services.CatalogService
	settings services.SiteSettingsService
}

// NewPublicHandlers constructs public handlers.
func NewPublicHandlers(catalog services.CatalogService, settings services.SiteSettingsService) *PublicHandlers {
	return &PublicHandlers{catalog: catalog, settings: settings}
}

// Routes wires the /public endpoints onto the provided router.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products/{slug}", h.getProduct)
	r.Get("/settings", h.getSettings)
}

type attributePayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type variantPayload struct {
	ID         int                `json:"id"`
	SKU        string             `json:"sku"`
	Price      string             `json:"price"`
	Stock      int                `json:"stock"`
	Attributes []attributePayload `json:"attributes"`
}

type productPayload struct {
	ID          int              `json:"id"`
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Variants    []variantPayload `json:"variants"`
	UpdatedAt   string           `json:"updated_at,omitempty"`
}

type settingsPayload struct {
	StoreName         string `json:"store_name"`
	ContactConfigured bool   `json:"contact_configured"`
}

func (h *PublicHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	product, err := h.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	if product.Status != domain.ProductStatusActive {
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
		return
	}

	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *PublicHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "settings service is unavailable", http.StatusServiceUnavailable))
		return
	}

	settings, err := h.settings.GetSiteSettings(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("settings_unavailable", "store settings are unavailable", http.StatusServiceUnavailable))
		return
	}
	_, configured := services.ResolveContactNumber(settings)
	writeJSONResponse(w, http.StatusOK, settingsPayload{
		StoreName:         settings.StoreName,
		ContactConfigured: configured,
	})
}

func buildProductPayload(product domain.ProductSnapshot) productPayload {
	payload := productPayload{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		ImageURL:    product.ImageURL,
		Variants:    make([]variantPayload, 0, len(product.Variants)),
	}
	if !product.UpdatedAt.IsZero() {
		payload.UpdatedAt = product.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, variantPayload{
			ID:         variant.ID,
			SKU:        variant.SKU,
			Price:      variant.Price.StringFixed(2),
			Stock:      variant.Stock,
			Attributes: buildAttributes(variant.Attributes),
		})
	}
	return payload
}

func buildAttributes(attrs []domain.Attribute) []attributePayload {
	out := make([]attributePayload, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attributePayload{Name: attr.Name, Value: attr.Value})
	}
	return out
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_slug", "product slug is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to load product", http.StatusInternalServerError))
	}
}
