package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/cartsync/internal/app/identity"
	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/internal/app/remote"
	"github.com/ikkim/cartsync/internal/app/snapshot"
	"github.com/ikkim/cartsync/pkg/logger"
)

// Scheduler coalesces per-item remote writes. Satisfied by
// debounce.Debouncer.
type Scheduler interface {
	Schedule(itemID string, quantity int, category model.Category)
	CancelAll()
	Flush()
}

// CartService owns the in-memory cart and wishlist aggregates. The
// in-memory state is always authoritative for the session: every
// mutation updates memory and the local snapshot synchronously, and
// only then — when the session is authenticated — feeds the
// fire-and-forget reconciliation channel to the remote store.
//
// One instance is constructed at session start and passed down
// explicitly; there is no package-level singleton.
type CartService struct {
	mu       sync.Mutex
	items    []model.LineItem
	wishlist []model.LineItem
	coupon   *model.Coupon
	isOpen   bool

	// "" while anonymous; the identity key after a login transition
	// has been handled (merge attempted), successful or not.
	identityKey string

	snapshots snapshot.Store
	remote    remote.CartStore
	scheduler Scheduler
	timeout   time.Duration
	sessionID string
}

// NewCartService hydrates both aggregates from the snapshot store.
func NewCartService(snapshots snapshot.Store, remoteStore remote.CartStore, scheduler Scheduler, timeout time.Duration) *CartService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &CartService{
		items:     snapshots.Load(snapshot.KeyCart),
		wishlist:  snapshots.Load(snapshot.KeyWishlist),
		snapshots: snapshots,
		remote:    remoteStore,
		scheduler: scheduler,
		timeout:   timeout,
		sessionID: uuid.NewString(),
	}

	logger.Info("Cart session started", map[string]interface{}{
		"session_id":     s.sessionID,
		"cart_items":     len(s.items),
		"wishlist_items": len(s.wishlist),
	})
	return s
}

// AddItem inserts the item with quantity 1, or increments the existing
// quantity by 1. Always opens the cart.
func (s *CartService) AddItem(item model.LineItem) {
	s.mu.Lock()

	resulting := 1
	if idx := indexOf(s.items, item.ID); idx >= 0 {
		s.items[idx].Quantity++
		resulting = s.items[idx].Quantity
	} else {
		item.Quantity = 1
		s.items = append(s.items, item)
	}
	s.isOpen = true
	s.saveCart()
	authenticated := s.identityKey != ""
	s.mu.Unlock()

	logger.Info("Item added to cart", map[string]interface{}{
		"session_id": s.sessionID,
		"item_id":    item.ID,
		"quantity":   resulting,
	})

	if authenticated {
		s.scheduler.Schedule(item.ID, resulting, item.Category)
	}
}

// RemoveItem deletes the item unconditionally; absent ids are a no-op.
func (s *CartService) RemoveItem(id string) {
	s.mu.Lock()
	idx := indexOf(s.items, id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	category := s.items[idx].Category
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.saveCart()
	authenticated := s.identityKey != ""
	s.mu.Unlock()

	logger.Info("Item removed from cart", map[string]interface{}{
		"session_id": s.sessionID,
		"item_id":    id,
	})

	if authenticated {
		s.scheduler.Schedule(id, 0, category)
	}
}

// UpdateQuantity applies a signed delta to the item's quantity. A
// result below 1 removes the item; an absent id is a no-op.
func (s *CartService) UpdateQuantity(id string, delta int) {
	s.mu.Lock()
	idx := indexOf(s.items, id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	category := s.items[idx].Category
	newQuantity := s.items[idx].Quantity + delta
	if newQuantity < 1 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		newQuantity = 0
	} else {
		s.items[idx].Quantity = newQuantity
	}
	s.saveCart()
	authenticated := s.identityKey != ""
	s.mu.Unlock()

	logger.Info("Cart quantity updated", map[string]interface{}{
		"session_id": s.sessionID,
		"item_id":    id,
		"quantity":   newQuantity,
	})

	if authenticated {
		s.scheduler.Schedule(id, newQuantity, category)
	}
}

// Clear empties the cart. The remote clear is immediate, not
// debounced: pending per-item writes are cancelled first so a stale
// write cannot resurrect a cleared item.
func (s *CartService) Clear() {
	s.mu.Lock()
	s.items = []model.LineItem{}
	s.saveCart()
	authenticated := s.identityKey != ""
	s.mu.Unlock()

	s.scheduler.CancelAll()

	logger.Info("Cart cleared", map[string]interface{}{
		"session_id": s.sessionID,
	})

	if authenticated {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.remote.Clear(ctx); err != nil {
				logger.Warn("Remote cart clear failed", map[string]interface{}{
					"session_id": s.sessionID,
					"error":      err.Error(),
				})
			}
		}()
	}
}

// ApplyCoupon replaces any active coupon with the already-validated
// one. Coupon state is local; validation lives in a collaborator.
func (s *CartService) ApplyCoupon(code string, discountAmount int64) {
	if discountAmount < 0 {
		discountAmount = 0
	}
	s.mu.Lock()
	s.coupon = &model.Coupon{Code: code, DiscountAmount: discountAmount}
	s.mu.Unlock()

	logger.Info("Coupon applied", map[string]interface{}{
		"session_id": s.sessionID,
		"code":       code,
	})
}

// RemoveCoupon clears the active coupon, if any.
func (s *CartService) RemoveCoupon() {
	s.mu.Lock()
	s.coupon = nil
	s.mu.Unlock()
}

// MoveToWishlist removes the item from the cart and inserts it into
// the wishlist in one critical section: no reader ever observes it in
// both collections or neither.
func (s *CartService) MoveToWishlist(item model.LineItem) {
	s.mu.Lock()

	if indexOf(s.wishlist, item.ID) < 0 {
		saved := item
		saved.Quantity = 1
		s.wishlist = append(s.wishlist, saved)
		s.saveWishlist()
	}

	wasInCart := false
	if idx := indexOf(s.items, item.ID); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		s.saveCart()
		wasInCart = true
	}
	authenticated := s.identityKey != ""
	s.mu.Unlock()

	logger.Info("Item moved to wishlist", map[string]interface{}{
		"session_id": s.sessionID,
		"item_id":    item.ID,
	})

	if wasInCart && authenticated {
		s.scheduler.Schedule(item.ID, 0, item.Category)
	}
}

// AddToWishlist inserts the item if absent. Wishlist state is
// local-only: it is snapshot-persisted but never synced remotely.
func (s *CartService) AddToWishlist(item model.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.wishlist, item.ID) >= 0 {
		return
	}
	item.Quantity = 1
	s.wishlist = append(s.wishlist, item)
	s.saveWishlist()
}

// RemoveFromWishlist deletes the item if present.
func (s *CartService) RemoveFromWishlist(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.wishlist, id)
	if idx < 0 {
		return
	}
	s.wishlist = append(s.wishlist[:idx], s.wishlist[idx+1:]...)
	s.saveWishlist()
}

// SetOpen toggles the UI visibility flag.
func (s *CartService) SetOpen(open bool) {
	s.mu.Lock()
	s.isOpen = open
	s.mu.Unlock()
}

// OnIdentityChange is the session merge coordinator. Subscribe it to
// an identity.Provider. It merges exactly once per transition from
// anonymous to a given identity: repeated observations of the same
// identity are no-ops, and a logout resets the coordinator so a later
// login merges again.
func (s *CartService) OnIdentityChange(id identity.Identity, ok bool) {
	if !ok {
		s.mu.Lock()
		s.identityKey = ""
		s.mu.Unlock()
		logger.Info("Session returned to anonymous", map[string]interface{}{
			"session_id": s.sessionID,
		})
		return
	}

	s.mu.Lock()
	if s.identityKey == id.Key {
		s.mu.Unlock()
		return
	}
	local := model.MergeTuples(s.items)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	canonical, err := s.remote.Merge(ctx, local)

	s.mu.Lock()
	// Authenticated from here on either way: per-item syncs self-heal
	// a failed merge, the merge itself is never retried.
	s.identityKey = id.Key
	if err == nil {
		s.items = canonical
		s.saveCart()
	}
	s.mu.Unlock()

	if err != nil {
		logger.Warn("Cart merge failed, keeping local cart", map[string]interface{}{
			"session_id": s.sessionID,
			"identity":   id.Key,
			"error":      err.Error(),
		})
		return
	}

	logger.Info("Cart merged with account", map[string]interface{}{
		"session_id": s.sessionID,
		"identity":   id.Key,
		"items":      len(canonical),
	})
}

// Items returns a copy of the cart in insertion order.
func (s *CartService) Items() []model.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LineItem(nil), s.items...)
}

// WishlistItems returns a copy of the wishlist.
func (s *CartService) WishlistItems() []model.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LineItem(nil), s.wishlist...)
}

// Coupon returns the active coupon, if any.
func (s *CartService) Coupon() (model.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coupon == nil {
		return model.Coupon{}, false
	}
	return *s.coupon, true
}

func (s *CartService) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Subtotal is recomputed from current state on every call.
func (s *CartService) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Subtotal(s.items)
}

// FinalTotal is the subtotal minus any coupon discount, clamped at 0.
func (s *CartService) FinalTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FinalTotal(s.items, s.coupon)
}

// Close flushes pending remote writes at session end.
func (s *CartService) Close() {
	s.scheduler.Flush()
	logger.Info("Cart session closed", map[string]interface{}{
		"session_id": s.sessionID,
	})
}

// saveCart and saveWishlist are called with s.mu held.
func (s *CartService) saveCart() {
	s.snapshots.Save(snapshot.KeyCart, s.items)
}

func (s *CartService) saveWishlist() {
	s.snapshots.Save(snapshot.KeyWishlist, s.wishlist)
}

func indexOf(items []model.LineItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
