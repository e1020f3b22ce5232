package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"buildmart/internal/domain"
	"go.uber.org/zap"
)

const (
	mergeTimeout   = 30 * time.Second
	failureMessage = "We couldn't update your cart. Please try again."
)

// View is a read-only snapshot of the cart exposed to handlers.
type View struct {
	Authenticated bool              `json:"authenticated"`
	UserID        string            `json:"userId,omitempty"`
	Loading       bool              `json:"loading"`
	Unavailable   bool              `json:"unavailable,omitempty"`
	Lines         []domain.CartLine `json:"lines"`
	TotalCents    int64             `json:"totalCents"`
	ItemCount     int               `json:"itemCount"`
}

// Facade is the single cart API of one visitor session. It dispatches to
// the guest LocalStore while anonymous and to RemoteLines once the
// Identity reports a signed-in user. Calls are serialised.
type Facade struct {
	mu       sync.Mutex
	local    *LocalStore
	remote   RemoteLines
	notifier Notifier
	merger   *Reconciler
	logger   *zap.Logger
	view     remoteView

	userID      string
	unsubscribe func()
	stopWatch   func()
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewFacade wires a facade to its collaborators and starts following
// identity changes. The caller must Close it.
func NewFacade(storage Storage, remote RemoteLines, identity Identity, notifier Notifier, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Facade{
		local:    OpenLocal(storage, logger),
		remote:   remote,
		notifier: notifier,
		merger:   NewReconciler(storage, remote, notifier, logger),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	f.stopWatch = identity.Watch(f.handleIdentity)
	if userID, ok := identity.Current(); ok {
		f.handleIdentity(userID)
	}
	return f
}

// AddToCart adds quantity units of product with the selected color and
// variant, incrementing an existing line with the same identity.
func (f *Facade) AddToCart(ctx context.Context, product domain.Product, quantity int, color string, variant *domain.Variant) error {
	line := NewLine(product, quantity, color, variant)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.ErrSessionExpired
	}

	if f.userID != "" {
		f.ensureSubscribed()
		if err := f.remote.AddLine(ctx, f.userID, line); err != nil {
			f.fail("add", line.IdentityKey, err)
			return err
		}
	} else if _, err := f.local.Add(line); err != nil {
		f.fail("add", line.IdentityKey, err)
		return err
	}

	f.notify(domain.NotificationSuccess, fmt.Sprintf("%s added to cart", lineLabel(line)))
	return nil
}

// RemoveFromCart deletes the line. Removing an absent line is a silent no-op.
func (f *Facade) RemoveFromCart(ctx context.Context, identityKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.ErrSessionExpired
	}
	return f.removeLocked(ctx, identityKey)
}

// UpdateQuantity sets an absolute quantity; quantity <= 0 removes the line.
func (f *Facade) UpdateQuantity(ctx context.Context, identityKey string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.ErrSessionExpired
	}
	if quantity <= 0 {
		return f.removeLocked(ctx, identityKey)
	}

	if f.userID != "" {
		f.ensureSubscribed()
		// The snapshot may lag a write made just before, so the store decides
		// whether the line exists.
		if err := f.remote.SetQuantity(ctx, f.userID, identityKey, quantity); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			f.fail("update", identityKey, err)
			return err
		}
		return nil
	}

	if _, err := f.local.SetQuantity(identityKey, quantity); err != nil {
		f.fail("update", identityKey, err)
		return err
	}
	return nil
}

// ClearCart removes every line of the current owner.
func (f *Facade) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.ErrSessionExpired
	}

	if f.userID != "" {
		if err := f.remote.Clear(ctx, f.userID); err != nil {
			f.fail("clear", "", err)
			return err
		}
	} else if err := f.local.Clear(); err != nil {
		f.fail("clear", "", err)
		return err
	}

	f.notify(domain.NotificationInfo, "Cart cleared")
	return nil
}

// CartTotal returns the cart total in cents.
func (f *Facade) CartTotal() int64 {
	return Total(f.Lines())
}

// ItemCount returns the number of units in the cart.
func (f *Facade) ItemCount() int {
	return ItemCount(f.Lines())
}

// Lines returns the lines of the current owner. For a signed-in user this
// is the last subscription snapshot.
func (f *Facade) Lines() []domain.CartLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userID != "" {
		lines, _, _ := f.view.snapshot()
		return lines
	}
	return f.local.Lines()
}

// View returns lines plus totals and loading state.
func (f *Facade) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.userID == "" {
		lines := f.local.Lines()
		return View{Lines: lines, TotalCents: Total(lines), ItemCount: ItemCount(lines)}
	}

	f.ensureSubscribed()
	lines, ready, err := f.view.snapshot()
	return View{
		Authenticated: true,
		UserID:        f.userID,
		Loading:       !ready && err == nil,
		Unavailable:   err != nil,
		Lines:         lines,
		TotalCents:    Total(lines),
		ItemCount:     ItemCount(lines),
	}
}

// Close stops following identity changes and releases the subscription.
func (f *Facade) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if f.stopWatch != nil {
		f.stopWatch()
	}
	f.release()
	f.cancel()
}

func (f *Facade) removeLocked(ctx context.Context, identityKey string) error {
	if f.userID != "" {
		f.ensureSubscribed()
		line, found := f.view.find(identityKey)
		if err := f.remote.RemoveLine(ctx, f.userID, identityKey); err != nil {
			f.fail("remove", identityKey, err)
			return err
		}
		if found {
			f.notify(domain.NotificationInfo, fmt.Sprintf("%s removed from cart", lineLabel(line)))
		}
		return nil
	}

	line, found, err := f.local.Remove(identityKey)
	if err != nil {
		f.fail("remove", identityKey, err)
		return err
	}
	if found {
		f.notify(domain.NotificationInfo, fmt.Sprintf("%s removed from cart", lineLabel(line)))
	}
	return nil
}

// handleIdentity switches the backing store when the signed-in user changes.
func (f *Facade) handleIdentity(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || userID == f.userID {
		return
	}

	previous := f.userID
	f.release()
	f.userID = userID

	if userID == "" {
		f.logger.Info("cart: signed out, using guest cart", zap.String("previous_user_id", previous))
		f.local.Reload()
		return
	}

	f.acquire(userID)
	if previous != "" {
		return
	}

	ctx, cancel := context.WithTimeout(f.ctx, mergeTimeout)
	defer cancel()
	if n, err := f.merger.Merge(ctx, userID); err != nil {
		f.logger.Warn("cart: guest merge incomplete", zap.String("user_id", userID), zap.Int("written", n), zap.Error(err))
	}
	f.local.Reload()
}

func (f *Facade) acquire(userID string) {
	gen := f.view.reset()
	unsubscribe, err := f.remote.Subscribe(f.ctx, userID, func(lines []domain.CartLine) {
		f.view.replace(gen, lines)
	})
	if err != nil {
		f.logger.Error("cart: subscribe failed", zap.String("user_id", userID), zap.Error(err))
		f.view.fail(gen, err)
		return
	}
	f.unsubscribe = unsubscribe
}

// ensureSubscribed retries a subscription whose setup failed earlier.
func (f *Facade) ensureSubscribed() {
	if f.userID != "" && f.unsubscribe == nil {
		f.acquire(f.userID)
	}
}

func (f *Facade) release() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
	f.view.reset()
}

func (f *Facade) fail(op, identityKey string, err error) {
	f.logger.Warn("cart: operation failed",
		zap.String("op", op),
		zap.String("user_id", f.userID),
		zap.String("identity_key", identityKey),
		zap.Error(err))
	f.notify(domain.NotificationError, failureMessage)
}

func (f *Facade) notify(kind domain.NotificationKind, message string) {
	if f.notifier == nil {
		return
	}
	f.notifier.Notify(domain.Notification{Kind: kind, Message: message, CreatedAt: time.Now().UTC()})
}
