package cart

import (
	"strings"
	"time"

	"buildmart/internal/domain"
)

// NewLine builds a cart line for product with a snapshot of its pricing.
// Quantities below 1 become 1.
func NewLine(product domain.Product, quantity int, color string, variant *domain.Variant) domain.CartLine {
	if quantity < 1 {
		quantity = 1
	}
	color = strings.TrimSpace(color)
	line := domain.CartLine{
		ProductID: product.ID,
		Quantity:  quantity,
		Color:     color,
		Product:   snapshotFromProduct(product),
		AddedAt:   time.Now().UTC(),
	}
	variantID := ""
	if variant != nil {
		variantID = variant.ID
		line.Variant = &domain.LineVariant{
			ID:         variant.ID,
			Name:       variant.Name,
			PriceCents: variant.PriceCents,
		}
	}
	line.IdentityKey = IdentityKey(product.ID, color, variantID)
	return line
}

func snapshotFromProduct(p domain.Product) domain.LineProduct {
	snap := domain.LineProduct{
		Name:               p.Name,
		SKU:                p.SKU,
		PriceCents:         p.PriceCents,
		DiscountPriceCents: p.DiscountPriceCents,
		Currency:           p.Currency,
	}
	if len(p.Images) > 0 {
		snap.ImageURL = p.Images[0]
	}
	return snap
}

// lineLabel names a line for notifications, e.g. "Exterior Paint (White, 10 L)".
func lineLabel(line domain.CartLine) string {
	name := line.Product.Name
	if name == "" {
		name = line.ProductID
	}
	var details []string
	if line.Color != "" {
		details = append(details, line.Color)
	}
	if line.Variant != nil {
		if line.Variant.Name != "" {
			details = append(details, line.Variant.Name)
		} else if line.Variant.ID != "" {
			details = append(details, line.Variant.ID)
		}
	}
	if len(details) == 0 {
		return name
	}
	return name + " (" + strings.Join(details, ", ") + ")"
}
