package cart

import (
	"context"

	"buildmart/internal/domain"
)

// DefaultChannel is the Postgres notification channel for cart line changes.
// Payloads carry the affected user id.
const DefaultChannel = "cart_lines_changed"

// Repository persists the cart lines of signed-in customers.
// AddLine increments the quantity of an existing line with the same
// identity key instead of inserting a duplicate.
type Repository interface {
	AddLine(ctx context.Context, userID string, line domain.CartLine) error
	RemoveLine(ctx context.Context, userID, identityKey string) error
	SetQuantity(ctx context.Context, userID, identityKey string, quantity int) error
	Clear(ctx context.Context, userID string) error
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
}
