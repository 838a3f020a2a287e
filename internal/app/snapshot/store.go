package snapshot

import "github.com/ikkim/cartsync/internal/app/model"

// Namespaces for the two aggregates. They never share a key.
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
)

// Store persists aggregate snapshots across process restarts.
// Both operations are best effort: Save failures are logged and
// dropped, and Load never surfaces an error to the caller — missing or
// unparseable data loads as an empty collection. The in-memory
// aggregate stays authoritative either way.
type Store interface {
	Load(key string) []model.LineItem
	Save(key string, items []model.LineItem)
}
