package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/cartsync/internal/app/identity"
	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/internal/app/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedCall struct {
	itemID   string
	quantity int
	category model.Category
}

// recordingScheduler stands in for the debouncer and records every
// scheduled write synchronously.
type recordingScheduler struct {
	mu      sync.Mutex
	calls   []schedCall
	cancels int
	flushes int
}

func (s *recordingScheduler) Schedule(itemID string, quantity int, category model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, schedCall{itemID: itemID, quantity: quantity, category: category})
}

func (s *recordingScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *recordingScheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

func (s *recordingScheduler) all() []schedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schedCall(nil), s.calls...)
}

type fakeRemote struct {
	mu          sync.Mutex
	mergeResult []model.LineItem
	mergeErr    error
	mergeCalls  [][]model.MergeTuple
	clearCalls  int
}

func (r *fakeRemote) SetQuantity(ctx context.Context, itemID string, category model.Category, quantity int) error {
	return nil
}

func (r *fakeRemote) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearCalls++
	return nil
}

func (r *fakeRemote) Merge(ctx context.Context, local []model.MergeTuple) ([]model.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mergeCalls = append(r.mergeCalls, append([]model.MergeTuple(nil), local...))
	if r.mergeErr != nil {
		return nil, r.mergeErr
	}
	return r.mergeResult, nil
}

func (r *fakeRemote) clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearCalls
}

func (r *fakeRemote) merges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mergeCalls)
}

func setupCartServiceTest(t *testing.T) (*CartService, *recordingScheduler, *fakeRemote, snapshot.Store) {
	store := snapshot.NewFileStore(t.TempDir())
	scheduler := &recordingScheduler{}
	remote := &fakeRemote{}
	svc := NewCartService(store, remote, scheduler, time.Second)
	return svc, scheduler, remote, store
}

func login(t *testing.T, svc *CartService, key string) {
	t.Helper()
	svc.OnIdentityChange(identity.Identity{Key: key, Token: "token-" + key}, true)
}

func phone() model.LineItem {
	return model.LineItem{
		ID:        "phone-13",
		Title:     "Phone 13",
		UnitPrice: 79900,
		Category:  model.CategoryDevice,
	}
}

func caseItem() model.LineItem {
	return model.LineItem{
		ID:        "case-clear",
		Title:     "Clear Case",
		UnitPrice: 1900,
		Category:  model.CategoryAccessory,
	}
}

func TestCartService_AddItem_NewAndIncrement(t *testing.T) {
	svc, _, _, _ := setupCartServiceTest(t)

	svc.AddItem(phone())
	svc.AddItem(phone())
	svc.AddItem(caseItem())

	items := svc.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "phone-13", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "case-clear", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)
	assert.True(t, svc.IsOpen())
}

func TestCartService_AnonymousNeverSchedules(t *testing.T) {
	svc, scheduler, _, _ := setupCartServiceTest(t)

	svc.AddItem(phone())
	svc.UpdateQuantity("phone-13", 1)
	svc.RemoveItem("phone-13")

	assert.Len(t, scheduler.all(), 0)
}

func TestCartService_AuthenticatedSchedulesResultingQuantity(t *testing.T) {
	svc, scheduler, _, _ := setupCartServiceTest(t)
	login(t, svc, "user-1")

	svc.AddItem(phone())
	svc.AddItem(phone())
	svc.AddItem(phone())

	calls := scheduler.all()
	require.Len(t, calls, 3)
	assert.Equal(t, schedCall{itemID: "phone-13", quantity: 1, category: model.CategoryDevice}, calls[0])
	assert.Equal(t, 2, calls[1].quantity)
	assert.Equal(t, 3, calls[2].quantity)
}

func TestCartService_QuantityFloor(t *testing.T) {
	svc, scheduler, _, _ := setupCartServiceTest(t)
	login(t, svc, "user-1")

	svc.AddItem(phone())
	svc.UpdateQuantity("phone-13", 1) // 2
	svc.UpdateQuantity("phone-13", -1)
	svc.UpdateQuantity("phone-13", -1) // removed
	svc.UpdateQuantity("phone-13", -1) // no-op, already gone

	assert.Len(t, svc.Items(), 0)

	calls := scheduler.all()
	require.Len(t, calls, 4)
	assert.Equal(t, 0, calls[3].quantity)
	// The extra decrement after removal scheduled nothing.
	for _, c := range calls {
		assert.GreaterOrEqual(t, c.quantity, 0)
	}
}

func TestCartService_RemoveItem(t *testing.T) {
	svc, scheduler, _, _ := setupCartServiceTest(t)
	login(t, svc, "user-1")

	svc.AddItem(phone())
	svc.RemoveItem("phone-13")
	svc.RemoveItem("phone-13") // no-op

	assert.Len(t, svc.Items(), 0)
	calls := scheduler.all()
	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[1].quantity)
}

func TestCartService_Clear(t *testing.T) {
	svc, scheduler, remote, _ := setupCartServiceTest(t)
	login(t, svc, "user-1")

	svc.AddItem(phone())
	svc.AddItem(caseItem())
	svc.Clear()

	assert.Len(t, svc.Items(), 0)

	scheduler.mu.Lock()
	cancels := scheduler.cancels
	scheduler.mu.Unlock()
	assert.Equal(t, 1, cancels)

	assert.Eventually(t, func() bool {
		return remote.clears() == 1
	}, time.Second, 10*time.Millisecond, "remote clear should fire immediately")
}

func TestCartService_Clear_AnonymousSkipsRemote(t *testing.T) {
	svc, _, remote, _ := setupCartServiceTest(t)

	svc.AddItem(phone())
	svc.Clear()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, remote.clears())
}

func TestCartService_Coupon(t *testing.T) {
	svc, _, _, _ := setupCartServiceTest(t)

	svc.ApplyCoupon("SAVE5", 500)
	coupon, ok := svc.Coupon()
	require.True(t, ok)
	assert.Equal(t, "SAVE5", coupon.Code)

	// Applying again replaces.
	svc.ApplyCoupon("SAVE9", 900)
	coupon, _ = svc.Coupon()
	assert.Equal(t, "SAVE9", coupon.Code)
	assert.Equal(t, int64(900), coupon.DiscountAmount)

	svc.RemoveCoupon()
	_, ok = svc.Coupon()
	assert.False(t, ok)
}

func TestCartService_Totals(t *testing.T) {
	svc, _, _, _ := setupCartServiceTest(t)

	a := model.LineItem{ID: "a", UnitPrice: 10, Category: model.CategoryDevice}
	b := model.LineItem{ID: "b", UnitPrice: 5, Category: model.CategoryAccessory}
	svc.AddItem(a)
	svc.AddItem(a)
	svc.AddItem(b)

	assert.Equal(t, int64(25), svc.Subtotal())
	assert.Equal(t, int64(25), svc.FinalTotal())

	svc.ApplyCoupon("BIG", 30)
	assert.Equal(t, int64(25), svc.Subtotal())
	assert.Equal(t, int64(0), svc.FinalTotal())
}

func TestCartService_MoveToWishlist(t *testing.T) {
	svc, scheduler, _, _ := setupCartServiceTest(t)
	login(t, svc, "user-1")

	item := phone()
	svc.AddItem(item)
	svc.MoveToWishlist(item)

	assert.Len(t, svc.Items(), 0)
	wishlist := svc.WishlistItems()
	require.Len(t, wishlist, 1)
	assert.Equal(t, "phone-13", wishlist[0].ID)

	calls := scheduler.all()
	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[1].quantity)

	// Idempotent if already wishlisted, no-op removal if not in cart.
	svc.MoveToWishlist(item)
	assert.Len(t, svc.WishlistItems(), 1)
	assert.Len(t, scheduler.all(), 2)
}

func TestCartService_WishlistAddRemove(t *testing.T) {
	svc, _, _, _ := setupCartServiceTest(t)

	svc.AddToWishlist(caseItem())
	svc.AddToWishlist(caseItem())
	assert.Len(t, svc.WishlistItems(), 1)

	svc.RemoveFromWishlist("case-clear")
	svc.RemoveFromWishlist("case-clear")
	assert.Len(t, svc.WishlistItems(), 0)
}

func TestCartService_SetOpen(t *testing.T) {
	svc, _, _, _ := setupCartServiceTest(t)

	assert.False(t, svc.IsOpen())
	svc.SetOpen(true)
	assert.True(t, svc.IsOpen())
	svc.SetOpen(false)
	assert.False(t, svc.IsOpen())
}

func TestCartService_HydratesFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewFileStore(dir)

	first := NewCartService(store, &fakeRemote{}, &recordingScheduler{}, time.Second)
	first.AddItem(phone())
	first.AddItem(phone())
	first.AddToWishlist(caseItem())

	// Simulated reload: a fresh service over the same snapshot dir.
	second := NewCartService(snapshot.NewFileStore(dir), &fakeRemote{}, &recordingScheduler{}, time.Second)

	items := second.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Len(t, second.WishlistItems(), 1)
}

func TestCartService_MergeReplacesCollection(t *testing.T) {
	svc, _, remote, _ := setupCartServiceTest(t)

	svc.AddItem(phone())
	svc.AddItem(caseItem())

	// Server policy wins: canonical result omits the case entirely.
	remote.mergeResult = []model.LineItem{
		{ID: "phone-13", Title: "Phone 13", UnitPrice: 79900, Category: model.CategoryDevice, Quantity: 5},
	}

	login(t, svc, "user-1")

	require.Equal(t, 1, remote.merges())
	remote.mu.Lock()
	sent := remote.mergeCalls[0]
	remote.mu.Unlock()
	require.Len(t, sent, 2)
	assert.Equal(t, model.MergeTuple{ID: "phone-13", Category: model.CategoryDevice, Quantity: 1}, sent[0])

	items := svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartService_MergeRunsOncePerTransition(t *testing.T) {
	svc, _, remote, _ := setupCartServiceTest(t)

	login(t, svc, "user-1")
	login(t, svc, "user-1") // repeated check, same identity
	assert.Equal(t, 1, remote.merges())

	// Logout then login again: a fresh transition merges again.
	svc.OnIdentityChange(identity.Identity{}, false)
	login(t, svc, "user-1")
	assert.Equal(t, 2, remote.merges())

	// Different identity is also a fresh transition.
	svc.OnIdentityChange(identity.Identity{}, false)
	login(t, svc, "user-2")
	assert.Equal(t, 3, remote.merges())
}

func TestCartService_MergeFailureKeepsLocalCart(t *testing.T) {
	svc, scheduler, remote, _ := setupCartServiceTest(t)

	svc.AddItem(phone())
	remote.mergeErr = errors.New("merge endpoint down")

	login(t, svc, "user-1")

	items := svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "phone-13", items[0].ID)

	// Still authenticated: the next mutation re-syncs per item.
	svc.AddItem(phone())
	calls := scheduler.all()
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].quantity)
}

func TestCartService_Close_Flushes(t *testing.T) {
	svc, scheduler, _, _ := setupCartServiceTest(t)

	svc.Close()

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	assert.Equal(t, 1, scheduler.flushes)
}
