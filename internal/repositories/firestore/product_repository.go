package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/madu-store/api/internal/domain"
	pfirestore "github.com/madu-store/api/internal/platform/firestore"
	"github.com/madu-store/api/internal/repositories"
)

const productsCollection = "products"

type productDocument struct {
	ID          int               `firestore:"id"`
	Slug        string            `firestore:"slug"`
	Name        string            `firestore:"name"`
	Description string            `firestore:"description,omitempty"`
	Status      string            `firestore:"status"`
	ImageURL    *string           `firestore:"imageUrl,omitempty"`
	Variants    []variantDocument `firestore:"variants"`
	UpdatedAt   time.Time         `firestore:"updatedAt"`
}

type variantDocument struct {
	ID         int                 `firestore:"id"`
	SKU        string              `firestore:"sku"`
	Price      string              `firestore:"price"`
	Stock      int                 `firestore:"stock"`
	Attributes []attributeDocument `firestore:"attributes,omitempty"`
}

type attributeDocument struct {
	Name  string `firestore:"name"`
	Value string `firestore:"value"`
}

// ProductRepository implements repositories.ProductRepository on the products collection.
// Documents are keyed by the decimal product id; prices are stored as decimal strings.
type ProductRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[productDocument]
	clock    func() time.Time
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
		clock:    time.Now,
	}, nil
}

// FindBySlug implements repositories.ProductRepository.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.ProductSnapshot, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.ProductSnapshot{}, err
	}
	if len(docs) == 0 {
		return domain.ProductSnapshot{}, pfirestore.NotFoundError("products.findBySlug", fmt.Sprintf("product %q not found", slug))
	}
	return decodeProduct(docs[0].Data)
}

// FindByID implements repositories.ProductRepository.
func (r *ProductRepository) FindByID(ctx context.Context, productID int) (domain.ProductSnapshot, error) {
	doc, err := r.base.Get(ctx, strconv.Itoa(productID))
	if err != nil {
		return domain.ProductSnapshot{}, err
	}
	return decodeProduct(doc.Data)
}

// Upsert writes the product document, replacing any previous version.
func (r *ProductRepository) Upsert(ctx context.Context, product domain.ProductSnapshot) error {
	doc := encodeProduct(product)
	doc.UpdatedAt = r.clock().UTC()
	_, err := r.base.Set(ctx, strconv.Itoa(product.ID), doc)
	return err
}

// ReserveStock implements repositories.ProductRepository inside a single transaction. Every
// product is read before any write, and a shortfall aborts the whole reservation.
func (r *ProductRepository) ReserveStock(ctx context.Context, reservations []repositories.StockReservation) error {
	return r.adjustStock(ctx, "products.reserveStock", reservations, -1)
}

// ReleaseStock implements repositories.ProductRepository, restoring reserved quantities in one transaction.
func (r *ProductRepository) ReleaseStock(ctx context.Context, reservations []repositories.StockReservation) error {
	return r.adjustStock(ctx, "products.releaseStock", reservations, 1)
}

func (r *ProductRepository) adjustStock(ctx context.Context, op string, reservations []repositories.StockReservation, sign int) error {
	if len(reservations) == 0 {
		return nil
	}
	now := r.clock().UTC()

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		refs := make(map[int]*firestore.DocumentRef)
		docs := make(map[int]*productDocument)
		order := make([]int, 0, len(reservations))

		for _, res := range reservations {
			if _, seen := docs[res.ProductID]; seen {
				continue
			}
			ref, err := r.base.DocumentRef(ctx, strconv.Itoa(res.ProductID))
			if err != nil {
				return err
			}
			snapshot, err := tx.Get(ref)
			if err != nil {
				return pfirestore.WrapError(op, err)
			}
			var doc productDocument
			if err := snapshot.DataTo(&doc); err != nil {
				return fmt.Errorf("firestore products decode %s: %w", ref.ID, err)
			}
			refs[res.ProductID] = ref
			docs[res.ProductID] = &doc
			order = append(order, res.ProductID)
		}

		for _, res := range reservations {
			doc := docs[res.ProductID]
			idx := variantIndex(doc.Variants, res.VariantID)
			if idx < 0 {
				return pfirestore.NotFoundError(op, fmt.Sprintf("variant %d not found", res.VariantID))
			}
			if sign < 0 && doc.Variants[idx].Stock < res.Quantity {
				return pfirestore.ConflictError(op, fmt.Sprintf("variant %d has %d in stock, %d requested", res.VariantID, doc.Variants[idx].Stock, res.Quantity))
			}
			doc.Variants[idx].Stock += sign * res.Quantity
		}

		for _, productID := range order {
			doc := docs[productID]
			doc.UpdatedAt = now
			if err := tx.Set(refs[productID], doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func variantIndex(variants []variantDocument, id int) int {
	for i, v := range variants {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func decodeProduct(doc productDocument) (domain.ProductSnapshot, error) {
	product := domain.ProductSnapshot{
		ID:          doc.ID,
		Slug:        doc.Slug,
		Name:        doc.Name,
		Description: doc.Description,
		Status:      domain.ProductStatus(strings.ToUpper(doc.Status)),
		ImageURL:    doc.ImageURL,
		UpdatedAt:   doc.UpdatedAt,
		Variants:    make([]domain.VariantSnapshot, 0, len(doc.Variants)),
	}
	for _, v := range doc.Variants {
		price, err := decimal.NewFromString(v.Price)
		if err != nil {
			return domain.ProductSnapshot{}, fmt.Errorf("firestore products: variant %d price %q: %w", v.ID, v.Price, err)
		}
		variant := domain.VariantSnapshot{ID: v.ID, SKU: v.SKU, Price: price, Stock: v.Stock}
		for _, attr := range v.Attributes {
			variant.Attributes = append(variant.Attributes, domain.Attribute{Name: attr.Name, Value: attr.Value})
		}
		product.Variants = append(product.Variants, variant)
	}
	return product, nil
}

func encodeProduct(product domain.ProductSnapshot) productDocument {
	doc := productDocument{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		Status:      string(product.Status),
		ImageURL:    product.ImageURL,
		UpdatedAt:   product.UpdatedAt,
		Variants:    make([]variantDocument, 0, len(product.Variants)),
	}
	for _, v := range product.Variants {
		variant := variantDocument{ID: v.ID, SKU: v.SKU, Price: v.Price.String(), Stock: v.Stock}
		for _, attr := range v.Attributes {
			variant.Attributes = append(variant.Attributes, attributeDocument{Name: attr.Name, Value: attr.Value})
		}
		doc.Variants = append(doc.Variants, variant)
	}
	return doc
}
