package cart

import (
	"context"
	"errors"
	"testing"

	"buildmart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facadeFixture struct {
	storage  *memStorage
	remote   *stubRemote
	identity *stubIdentity
	notes    *recordingNotifier
	facade   *Facade
}

func newFacadeFixture(t *testing.T) *facadeFixture {
	t.Helper()
	fx := &facadeFixture{
		storage:  newMemStorage(),
		remote:   newStubRemote(),
		identity: newStubIdentity(),
		notes:    &recordingNotifier{},
	}
	fx.facade = NewFacade(fx.storage, fx.remote, fx.identity, fx.notes, nil)
	t.Cleanup(fx.facade.Close)
	return fx
}

func TestFacade_GuestAddSameIdentitySums(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()

	for _, qty := range []int{1, 2, 4} {
		require.NoError(t, fx.facade.AddToCart(ctx, cement, qty, "", nil))
	}

	lines := fx.facade.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, 3, fx.notes.count(domain.NotificationSuccess))
}

func TestFacade_GuestColorMakesDistinctLine(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.facade.AddToCart(ctx, paint, 1, "", nil))
	require.NoError(t, fx.facade.AddToCart(ctx, paint, 1, "red", nil))

	assert.Len(t, fx.facade.Lines(), 2)
	assert.Equal(t, 2, fx.facade.ItemCount())
	assert.Contains(t, fx.notes.messages(), "Facade Paint (red) added to cart")
}

func TestFacade_NonPositiveAddBecomesOne(t *testing.T) {
	fx := newFacadeFixture(t)
	require.NoError(t, fx.facade.AddToCart(context.Background(), cement, -3, "", nil))
	assert.Equal(t, 1, fx.facade.ItemCount())
}

func TestFacade_UpdateNonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1, -50} {
		fx := newFacadeFixture(t)
		ctx := context.Background()
		require.NoError(t, fx.facade.AddToCart(ctx, cement, 2, "", nil))
		key := IdentityKey(cement.ID, "", "")

		require.NoError(t, fx.facade.UpdateQuantity(ctx, key, qty))

		assert.Empty(t, fx.facade.Lines())
		assert.False(t, fx.storage.has(GuestCartKey))
		assert.Contains(t, fx.notes.messages(), "Portland Cement removed from cart")
	}
}

func TestFacade_UpdateSetsAbsoluteQuantity(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 2, "", nil))

	require.NoError(t, fx.facade.UpdateQuantity(ctx, IdentityKey(cement.ID, "", ""), 5))

	assert.Equal(t, 5, fx.facade.ItemCount())
	assert.Equal(t, int64(5*1250), fx.facade.CartTotal())
}

func TestFacade_RemoveAbsentIsSilent(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 1, "", nil))
	before := len(fx.notes.messages())

	require.NoError(t, fx.facade.RemoveFromCart(ctx, "missing||"))

	assert.Len(t, fx.facade.Lines(), 1)
	assert.Len(t, fx.notes.messages(), before)
}

func TestFacade_ClearGuestCart(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 1, "", nil))

	require.NoError(t, fx.facade.ClearCart(ctx))

	assert.Empty(t, fx.facade.Lines())
	assert.False(t, fx.storage.has(GuestCartKey))
}

func TestFacade_AuthenticatedWritesThroughSubscription(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	fx.identity.set("user-1")

	require.NoError(t, fx.facade.AddToCart(ctx, cement, 2, "", nil))
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 1, "", nil))

	view := fx.facade.View()
	assert.True(t, view.Authenticated)
	assert.False(t, view.Loading)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.Equal(t, map[string]int{IdentityKey(cement.ID, "", ""): 3}, fx.remote.quantities("user-1"))
	assert.False(t, fx.storage.has(GuestCartKey))
}

func TestFacade_RemoteFailureKeepsLastSnapshot(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	fx.identity.set("user-1")
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 2, "", nil))

	fx.remote.addErr = errors.New("permission denied")
	err := fx.facade.AddToCart(ctx, paint, 1, "", nil)

	require.Error(t, err)
	lines := fx.facade.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, cement.ID, lines[0].ProductID)
	assert.Equal(t, 1, fx.notes.count(domain.NotificationError))

	fx.remote.setErr = errors.New("offline")
	require.Error(t, fx.facade.UpdateQuantity(ctx, IdentityKey(cement.ID, "", ""), 9))
	assert.Equal(t, 2, fx.facade.ItemCount())
}

func TestFacade_SubscriptionFailureShowsNoCart(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.remote.subscribeErr = errors.New("unavailable")
	fx.identity.set("user-1")

	view := fx.facade.View()
	assert.True(t, view.Unavailable)
	assert.False(t, view.Loading)
	assert.Empty(t, view.Lines)

	fx.remote.mu.Lock()
	fx.remote.subscribeErr = nil
	fx.remote.mu.Unlock()

	view = fx.facade.View()
	assert.False(t, view.Unavailable)
	assert.Equal(t, 1, fx.remote.subscribers())
}

func TestFacade_LogoutReleasesSubscription(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	fx.identity.set("user-1")
	require.Equal(t, 1, fx.remote.subscribers())
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 1, "", nil))

	fx.identity.set("")

	assert.Equal(t, 0, fx.remote.subscribers())
	assert.False(t, fx.facade.View().Authenticated)
	assert.Empty(t, fx.facade.Lines())
}

func TestFacade_CloseReleasesSubscription(t *testing.T) {
	fx := newFacadeFixture(t)
	fx.identity.set("user-1")
	require.Equal(t, 1, fx.remote.subscribers())

	fx.facade.Close()

	assert.Equal(t, 0, fx.remote.subscribers())
	assert.ErrorIs(t, fx.facade.AddToCart(context.Background(), cement, 1, "", nil), domain.ErrSessionExpired)
}

func TestFacade_LoginMergesGuestCart(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 2, "", nil))
	require.NoError(t, fx.remote.AddLine(ctx, "user-1", NewLine(cement, 3, "", nil)))

	fx.identity.set("user-1")
	fx.identity.set("user-1")

	assert.Equal(t, map[string]int{IdentityKey(cement.ID, "", ""): 5}, fx.remote.quantities("user-1"))
	assert.Equal(t, 5, fx.facade.ItemCount())
	assert.False(t, fx.storage.has(GuestCartKey))
	assert.Contains(t, fx.notes.messages(), mergedMessage)
}

func TestFacade_GuestWriteFailureLeavesCartUnchanged(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.facade.AddToCart(ctx, cement, 1, "", nil))

	fx.storage.setErr = errors.New("disk full")
	err := fx.facade.AddToCart(ctx, paint, 2, "", nil)
	require.Error(t, err)

	assert.Equal(t, 1, fx.notes.count(domain.NotificationError))
	view := fx.facade.View()
	assert.Equal(t, 1, view.ItemCount)
	assert.Equal(t, []string{IdentityKey("p-cement", "", "")}, keysOf(view.Lines))

	require.Error(t, fx.facade.UpdateQuantity(ctx, IdentityKey("p-cement", "", ""), 5))
	assert.Equal(t, 1, fx.facade.ItemCount())

	fx.storage.setErr = nil
	assert.Equal(t, keysOf(fx.facade.Lines()), keysOf(OpenLocal(fx.storage, nil).Lines()))
}

func TestFacade_AuthenticatedUpdateReachesStoreAheadOfSnapshot(t *testing.T) {
	fx := newFacadeFixture(t)
	ctx := context.Background()
	fx.identity.set("user-1")

	key := IdentityKey(cement.ID, "", "")
	fx.remote.putSilently("user-1", NewLine(cement, 1, "", nil))
	require.Empty(t, fx.facade.Lines())

	require.NoError(t, fx.facade.UpdateQuantity(ctx, key, 6))
	assert.Equal(t, map[string]int{key: 6}, fx.remote.quantities("user-1"))
	require.Len(t, fx.facade.Lines(), 1)
	assert.Equal(t, 6, fx.facade.Lines()[0].Quantity)

	require.NoError(t, fx.facade.UpdateQuantity(ctx, "missing||", 3))
	assert.Zero(t, fx.notes.count(domain.NotificationError))
}
