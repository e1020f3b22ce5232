package cart

import (
	"context"

	"buildmart/internal/domain"
)

// GuestCartKey is the storage key holding the serialized guest cart.
const GuestCartKey = "guestCart"

// Storage is the durable, client-scoped key/value storage of one visitor.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// RemoteLines is the capability surface of the hosted cart store.
// AddLine has create-or-increment semantics keyed by IdentityKey.
// Subscribe delivers the current snapshot before returning and every
// later full snapshot until the returned func is called.
type RemoteLines interface {
	AddLine(ctx context.Context, userID string, line domain.CartLine) error
	RemoveLine(ctx context.Context, userID, identityKey string) error
	SetQuantity(ctx context.Context, userID, identityKey string, quantity int) error
	Clear(ctx context.Context, userID string) error
	Subscribe(ctx context.Context, userID string, fn func([]domain.CartLine)) (func(), error)
}

// Notifier shows a message to the visitor. It must not block.
type Notifier interface {
	Notify(n domain.Notification)
}

// Identity is the observable "who is signed in" value of a session.
type Identity interface {
	Current() (userID string, ok bool)
	Watch(fn func(userID string)) (cancel func())
}
