package domain

import "time"

type Product struct {
	ID                 string    `json:"id"`
	Key                string    `json:"key"`
	SKU                string    `json:"sku"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	CategoryKey        string    `json:"categoryKey,omitempty"`
	PriceCents         int64     `json:"priceCents"`
	DiscountPriceCents *int64    `json:"discountPriceCents,omitempty"`
	Currency           string    `json:"currency"`
	Colors             []string  `json:"colors,omitempty"`
	Variants           []Variant `json:"variants,omitempty"`
	Images             []string  `json:"images,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Variant is a purchasable option of a product (size, pack, grade).
// PriceCents overrides the product price when set.
type Variant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents *int64 `json:"priceCents,omitempty"`
}

// FindVariant returns the variant with the given id.
func (p Product) FindVariant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// HasColor reports whether color is one of the product's declared colors.
func (p Product) HasColor(color string) bool {
	for _, c := range p.Colors {
		if c == color {
			return true
		}
	}
	return false
}
