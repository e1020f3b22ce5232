package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"buildmart/internal/domain"
	"go.uber.org/zap"
)

const mergedMessage = "Items from your guest cart were added to your account cart"

// Reconciler folds a guest cart into a customer's remote cart at sign-in.
//
// Guest lines are applied at least once: the guest cart is only removed
// after every line was written, so a failure part way leaves it in place and
// a later merge re-applies the lines that had already succeeded.
type Reconciler struct {
	mu       sync.Mutex
	storage  Storage
	remote   RemoteLines
	notifier Notifier
	logger   *zap.Logger
}

func NewReconciler(storage Storage, remote RemoteLines, notifier Notifier, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{storage: storage, remote: remote, notifier: notifier, logger: logger}
}

// Merge writes every guest line to userID's cart with create-or-increment
// semantics, removes the guest cart and notifies once. It returns the number
// of lines written. An absent or empty guest cart is a no-op.
func (r *Reconciler) Merge(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := loadGuestCart(r.storage, r.logger)
	if len(lines) == 0 {
		return 0, nil
	}

	for i, line := range lines {
		if err := r.remote.AddLine(ctx, userID, line); err != nil {
			r.logger.Warn("cart merge: write failed, guest cart kept",
				zap.String("user_id", userID),
				zap.String("identity_key", line.IdentityKey),
				zap.Int("written", i),
				zap.Int("total", len(lines)),
				zap.Error(err))
			r.notify(domain.NotificationError, failureMessage)
			return i, fmt.Errorf("merge line %s: %w", line.IdentityKey, err)
		}
	}

	if err := r.storage.Remove(GuestCartKey); err != nil {
		r.logger.Error("cart merge: guest cart not removed", zap.String("user_id", userID), zap.Error(err))
		return len(lines), fmt.Errorf("remove guest cart: %w", err)
	}

	r.logger.Info("cart merge: done", zap.String("user_id", userID), zap.Int("lines", len(lines)))
	r.notify(domain.NotificationSuccess, mergedMessage)
	return len(lines), nil
}

func (r *Reconciler) notify(kind domain.NotificationKind, message string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(domain.Notification{Kind: kind, Message: message, CreatedAt: time.Now().UTC()})
}
