package cart

import "buildmart/internal/domain"

// UnitPrice resolves the price of one unit: variant override, then product
// discount price, then product price.
func UnitPrice(line domain.CartLine) int64 {
	if line.Variant != nil && line.Variant.PriceCents != nil {
		return *line.Variant.PriceCents
	}
	if line.Product.DiscountPriceCents != nil {
		return *line.Product.DiscountPriceCents
	}
	return line.Product.PriceCents
}

// Total sums UnitPrice × quantity over all lines.
func Total(lines []domain.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += UnitPrice(line) * int64(line.Quantity)
	}
	return total
}

// ItemCount sums line quantities.
func ItemCount(lines []domain.CartLine) int {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}
