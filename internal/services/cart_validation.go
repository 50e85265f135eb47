package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	domain "github.com/madu-store/api/internal/domain"
)

// ErrCartValidationUnavailable indicates validation could not run at all, as opposed to finding problems.
var ErrCartValidationUnavailable = errors.New("cart validation: unavailable")

var validationTracer = otel.Tracer("github.com/madu-store/api/internal/services/cart_validation")

// ProductLookup fetches the current state of a product by slug.
type ProductLookup interface {
	GetProductBySlug(ctx context.Context, slug string) (ProductSnapshot, error)
}

// CartValidatorDeps wires the dependencies required by the cart validator.
type CartValidatorDeps struct {
	Products       ProductLookup
	CurrencySymbol string
	// MaxConcurrentLookups bounds the per-slug fan-out. Zero means unbounded.
	MaxConcurrentLookups int
	Logger               Logger
}

type cartValidator struct {
	products    ProductLookup
	symbol      string
	concurrency int
	logger      Logger
}

// NewCartValidator constructs a CartValidator validating required dependencies.
func NewCartValidator(deps CartValidatorDeps) (CartValidator, error) {
	if deps.Products == nil {
		return nil, errors.New("cart validator: product lookup is required")
	}
	symbol := deps.CurrencySymbol
	if symbol == "" {
		symbol = "$"
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &cartValidator{
		products:    deps.Products,
		symbol:      symbol,
		concurrency: deps.MaxConcurrentLookups,
		logger:      logger,
	}, nil
}

// productLookupResult is the tagged outcome of one slug lookup. found=false means "absent".
type productLookupResult struct {
	slug     string
	snapshot ProductSnapshot
	found    bool
}

// ValidateCart fetches every distinct product once, concurrently, and reconciles each line in cart order.
func (v *cartValidator) ValidateCart(ctx context.Context, items []CartLineItem) (ValidationResult, error) {
	ctx, span := validationTracer.Start(ctx, "cart.validate")
	defer span.End()
	span.SetAttributes(attribute.Int("cart.items", len(items)))

	snapshots, err := v.fetchSnapshots(ctx, distinctSlugs(items))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup dispatch failed")
		return ValidationResult{}, err
	}

	result := v.reconcile(items, snapshots)
	span.SetAttributes(
		attribute.Bool("cart.valid", result.IsValid),
		attribute.Bool("cart.price_changes", result.HasPriceChanges),
		attribute.Bool("cart.stock_issues", result.HasStockIssues),
	)
	return result, nil
}

// fetchSnapshots joins one lookup per slug. Individual failures become absent results and never cancel
// sibling lookups; only a failure of the join itself is returned.
func (v *cartValidator) fetchSnapshots(ctx context.Context, slugs []string) (map[string]ProductSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCartValidationUnavailable, err)
	}

	results := make([]productLookupResult, len(slugs))
	var group errgroup.Group
	if v.concurrency > 0 {
		group.SetLimit(v.concurrency)
	}
	for i, slug := range slugs {
		group.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("lookup %q panicked: %v", slug, rec)
				}
			}()
			results[i] = v.lookup(ctx, slug)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCartValidationUnavailable, err)
	}

	snapshots := make(map[string]ProductSnapshot, len(results))
	for _, res := range results {
		if res.found {
			snapshots[res.slug] = res.snapshot
		}
	}
	return snapshots, nil
}

func (v *cartValidator) lookup(ctx context.Context, slug string) productLookupResult {
	snapshot, err := v.products.GetProductBySlug(ctx, slug)
	if err != nil {
		v.logger(ctx, "cart.validation.lookup_failed", map[string]any{
			"slug":  slug,
			"error": err,
		})
		return productLookupResult{slug: slug}
	}
	return productLookupResult{slug: slug, snapshot: snapshot, found: true}
}

func (v *cartValidator) reconcile(items []CartLineItem, snapshots map[string]ProductSnapshot) ValidationResult {
	result := ValidationResult{Messages: []string{}}
	working := domain.CloneItems(items)

	for i := range working {
		item := &working[i]

		product, ok := snapshots[strings.TrimSpace(item.ProductSlug)]
		if !ok || !product.Status.Purchasable() {
			result.HasStockIssues = true
			result.Messages = append(result.Messages, fmt.Sprintf("%s is no longer available and was removed from your cart.", item.ProductName))
			item.Quantity = 0
			continue
		}

		variant, ok := product.Variant(item.VariantID)
		if !ok {
			result.HasStockIssues = true
			result.Messages = append(result.Messages, fmt.Sprintf("The selected variant of %s no longer exists and was removed from your cart.", item.ProductName))
			item.Quantity = 0
			continue
		}

		if !variant.Price.Equal(item.Price) {
			result.HasPriceChanges = true
			result.Messages = append(result.Messages, fmt.Sprintf("The price of %s changed from %s to %s.",
				item.ProductName, v.formatPrice(item.Price), v.formatPrice(variant.Price)))
			item.Price = variant.Price
		}

		if variant.Stock < item.Quantity {
			result.HasStockIssues = true
			if variant.Stock <= 0 {
				result.Messages = append(result.Messages, fmt.Sprintf("%s is sold out and was removed from your cart.", item.ProductName))
				item.Quantity = 0
			} else {
				result.Messages = append(result.Messages, fmt.Sprintf("Insufficient stock for %s: quantity adjusted to %d.", item.ProductName, variant.Stock))
				item.Quantity = variant.Stock
			}
		}
	}

	result.UpdatedItems = make([]CartLineItem, 0, len(working))
	for _, item := range working {
		if item.Quantity > 0 {
			result.UpdatedItems = append(result.UpdatedItems, item)
		}
	}

	// Valid means no flag fired and no line was dropped.
	result.IsValid = !result.HasPriceChanges && !result.HasStockIssues && len(result.UpdatedItems) == len(items)
	return result
}

func (v *cartValidator) formatPrice(amount decimal.Decimal) string {
	return v.symbol + amount.StringFixed(2)
}

func distinctSlugs(items []CartLineItem) []string {
	seen := make(map[string]struct{}, len(items))
	slugs := make([]string, 0, len(items))
	for _, item := range items {
		slug := strings.TrimSpace(item.ProductSlug)
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	return slugs
}
