package memory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	domain "github.com/madu-store/api/internal/domain"
)

// Seed is the YAML document used to populate the in-memory catalog.
type Seed struct {
	Settings SeedSettings  `yaml:"settings"`
	Products []SeedProduct `yaml:"products"`
}

// SeedSettings mirrors the storefront settings document.
type SeedSettings struct {
	StoreName   string `yaml:"store_name"`
	WhatsAppURL string `yaml:"whatsapp_url"`
	Phone       string `yaml:"phone"`
}

// SeedProduct describes one catalog product.
type SeedProduct struct {
	ID          int           `yaml:"id"`
	Slug        string        `yaml:"slug"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Status      string        `yaml:"status"`
	ImageURL    string        `yaml:"image_url"`
	Variants    []SeedVariant `yaml:"variants"`
}

// SeedVariant describes a purchasable variant. Price is a decimal string.
type SeedVariant struct {
	ID         int             `yaml:"id"`
	SKU        string          `yaml:"sku"`
	Price      string          `yaml:"price"`
	Stock      int             `yaml:"stock"`
	Attributes []SeedAttribute `yaml:"attributes"`
}

// SeedAttribute is a display attribute such as Size: M.
type SeedAttribute struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// LoadSeedFile parses the seed document at path.
func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("memory seed: read %s: %w", path, err)
	}
	return ParseSeed(bytes.NewReader(data))
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(r io.Reader) (Seed, error) {
	var seed Seed
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("memory seed: decode: %w", err)
	}
	if _, err := seed.products(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func (s Seed) products() ([]domain.ProductSnapshot, error) {
	products := make([]domain.ProductSnapshot, 0, len(s.Products))
	ids := make(map[int]struct{}, len(s.Products))
	slugs := make(map[string]struct{}, len(s.Products))
	variants := make(map[int]struct{})

	for i, p := range s.Products {
		slug := strings.ToLower(strings.TrimSpace(p.Slug))
		if p.ID <= 0 || slug == "" {
			return nil, fmt.Errorf("memory seed: products[%d]: id and slug are required", i)
		}
		if _, dup := ids[p.ID]; dup {
			return nil, fmt.Errorf("memory seed: duplicate product id %d", p.ID)
		}
		if _, dup := slugs[slug]; dup {
			return nil, fmt.Errorf("memory seed: duplicate product slug %q", slug)
		}
		ids[p.ID] = struct{}{}
		slugs[slug] = struct{}{}

		status := domain.ProductStatus(strings.ToUpper(strings.TrimSpace(p.Status)))
		switch status {
		case "":
			status = domain.ProductStatusActive
		case domain.ProductStatusActive, domain.ProductStatusInactive, domain.ProductStatusArchived:
		default:
			return nil, fmt.Errorf("memory seed: product %s: unknown status %q", slug, p.Status)
		}

		product := domain.ProductSnapshot{
			ID:          p.ID,
			Slug:        slug,
			Name:        strings.TrimSpace(p.Name),
			Description: strings.TrimSpace(p.Description),
			Status:      status,
			ImageURL:    optional(p.ImageURL),
		}
		for j, v := range p.Variants {
			if v.ID <= 0 {
				return nil, fmt.Errorf("memory seed: product %s variants[%d]: id is required", slug, j)
			}
			if _, dup := variants[v.ID]; dup {
				return nil, fmt.Errorf("memory seed: duplicate variant id %d", v.ID)
			}
			variants[v.ID] = struct{}{}
			price, err := decimal.NewFromString(strings.TrimSpace(v.Price))
			if err != nil || price.IsNegative() {
				return nil, fmt.Errorf("memory seed: variant %d: invalid price %q", v.ID, v.Price)
			}
			if v.Stock < 0 {
				return nil, fmt.Errorf("memory seed: variant %d: stock must not be negative", v.ID)
			}
			variant := domain.VariantSnapshot{ID: v.ID, SKU: strings.TrimSpace(v.SKU), Price: price, Stock: v.Stock}
			for _, attr := range v.Attributes {
				variant.Attributes = append(variant.Attributes, domain.Attribute{Name: attr.Name, Value: attr.Value})
			}
			product.Variants = append(product.Variants, variant)
		}
		products = append(products, product)
	}
	return products, nil
}

func (s Seed) settings() domain.SiteSettings {
	return domain.SiteSettings{
		StoreName:   strings.TrimSpace(s.Settings.StoreName),
		WhatsAppURL: optional(s.Settings.WhatsAppURL),
		Phone:       optional(s.Settings.Phone),
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
