package seed

import (
	"context"
	"fmt"

	"buildmart/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

func cents(v int64) *int64 { return &v }

// Categories is the demo category tree.
var Categories = []domain.Category{
	{Key: "dry-mix", Name: "Dry mixes", Slug: "dry-mix", Description: "Cement, plaster and mortar"},
	{Key: "paint", Name: "Paint & coatings", Slug: "paint", Description: "Interior and exterior paint"},
	{Key: "lumber", Name: "Lumber", Slug: "lumber", Description: "Boards, beams and sheet goods"},
	{Key: "fasteners", Name: "Fasteners", Slug: "fasteners", Description: "Screws, nails and anchors"},
}

// Products is the demo catalog.
var Products = []domain.Product{
	{
		Key:         "cement-m500",
		SKU:         "CEM-M500-50",
		Name:        "Portland cement M500",
		Description: "50 kg bag for foundations and screeds",
		CategoryKey: "dry-mix",
		PriceCents:  1250,
		Currency:    "USD",
		Images:      []string{"https://images.buildmart.example/cement-m500.jpg"},
	},
	{
		Key:                "tile-adhesive",
		SKU:                "ADH-TILE-25",
		Name:               "Tile adhesive",
		Description:        "25 kg, for ceramic and porcelain tiles",
		CategoryKey:        "dry-mix",
		PriceCents:         1890,
		DiscountPriceCents: cents(1590),
		Currency:           "USD",
	},
	{
		Key:         "paint-acrylic",
		SKU:         "PNT-ACR",
		Name:        "Acrylic facade paint",
		Description: "Weather resistant, washable",
		CategoryKey: "paint",
		PriceCents:  4500,
		Currency:    "USD",
		Colors:      []string{"white", "grey", "terracotta"},
		Variants: []domain.Variant{
			{ID: "3l", Name: "3 L"},
			{ID: "10l", Name: "10 L", PriceCents: cents(12900)},
		},
		Images: []string{"https://images.buildmart.example/paint-acrylic.jpg"},
	},
	{
		Key:         "pine-board",
		SKU:         "LUM-PINE-2X4",
		Name:        "Pine board 2x4",
		Description: "Kiln dried, 2.4 m",
		CategoryKey: "lumber",
		PriceCents:  690,
		Currency:    "USD",
		Variants: []domain.Variant{
			{ID: "2.4m", Name: "2.4 m"},
			{ID: "3.6m", Name: "3.6 m", PriceCents: cents(990)},
		},
	},
	{
		Key:                "wood-screws",
		SKU:                "FST-WS-200",
		Name:               "Wood screws 4x40",
		Description:        "Box of 200, yellow zinc",
		CategoryKey:        "fasteners",
		PriceCents:         850,
		DiscountPriceCents: cents(720),
		Currency:           "USD",
	},
}

// Apply upserts the demo catalog. It is idempotent.
func Apply(ctx context.Context, products ProductWriter, categories CategoryWriter) error {
	for _, c := range Categories {
		if _, err := categories.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert category %s: %w", c.Key, err)
		}
	}
	for _, p := range Products {
		if _, err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}
	return nil
}
