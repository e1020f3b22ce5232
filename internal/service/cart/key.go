package cart

import "strings"

// keyEscaper escapes the separator inside segments so distinct triples
// never join to the same key. Segments without '|' or '\' are unchanged.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// IdentityKey derives the line identity from product, color and variant.
// Empty color or variant segments are kept so "p1" with no color and "p1"
// with a color never collide.
func IdentityKey(productID, color, variantID string) string {
	return strings.Join([]string{
		keyEscaper.Replace(strings.TrimSpace(productID)),
		keyEscaper.Replace(strings.TrimSpace(color)),
		keyEscaper.Replace(strings.TrimSpace(variantID)),
	}, "|")
}
