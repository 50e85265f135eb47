package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/madu-store/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates a malformed slug or id.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogProductNotFound indicates no product matches the lookup.
	ErrCatalogProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogUnavailable indicates the catalog backend failed.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogServiceDeps wires the dependencies required by the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	products repositories.ProductRepository
}

// NewCatalogService constructs a CatalogService validating required dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	return &catalogService{products: deps.Products}, nil
}

// GetProductBySlug returns the product regardless of status; callers decide what a status means to them.
func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (ProductSnapshot, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return ProductSnapshot{}, ErrCatalogInvalidInput
	}
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return ProductSnapshot{}, translateCatalogError(slug, err)
	}
	return product, nil
}

func (s *catalogService) GetProductByID(ctx context.Context, productID int) (ProductSnapshot, error) {
	if productID <= 0 {
		return ProductSnapshot{}, ErrCatalogInvalidInput
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return ProductSnapshot{}, translateCatalogError(fmt.Sprintf("#%d", productID), err)
	}
	return product, nil
}

func translateCatalogError(ref string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if repositories.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrCatalogProductNotFound, ref)
	}
	return fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, ref, err)
}
