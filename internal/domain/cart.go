package domain

import "time"

// CartLine is a single entry of a guest or customer cart.
// IdentityKey is unique within one cart.
type CartLine struct {
	IdentityKey string       `json:"identityKey"`
	ProductID   string       `json:"productId"`
	Quantity    int          `json:"quantity"`
	Color       string       `json:"color,omitempty"`
	Variant     *LineVariant `json:"variant,omitempty"`
	Product     LineProduct  `json:"product"`
	AddedAt     time.Time    `json:"addedAt"`
}

// LineVariant is the variant selection stored on a line.
type LineVariant struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	PriceCents *int64 `json:"priceCents,omitempty"`
}

// LineProduct is the product snapshot taken when the line was first added.
type LineProduct struct {
	Name               string `json:"name"`
	SKU                string `json:"sku,omitempty"`
	PriceCents         int64  `json:"priceCents"`
	DiscountPriceCents *int64 `json:"discountPriceCents,omitempty"`
	Currency           string `json:"currency,omitempty"`
	ImageURL           string `json:"imageUrl,omitempty"`
}
