package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ikkim/cartsync/config"
	"github.com/ikkim/cartsync/internal/app/debounce"
	"github.com/ikkim/cartsync/internal/app/identity"
	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/internal/app/remote"
	"github.com/ikkim/cartsync/internal/app/service"
	"github.com/ikkim/cartsync/internal/app/snapshot"
	"github.com/ikkim/cartsync/pkg/logger"
)

// Drives the sync engine against a running cart store server:
// anonymous rapid clicks, a simulated reload, then login and merge.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:       "debug",
		Format:      "console",
		EnableColor: true,
	})

	snapshots := newSnapshotStore(cfg)
	provider := identity.NewTokenProvider()

	client, err := remote.NewClient(remote.Config{
		BaseURL: cfg.Sync.RemoteBaseURL,
		Timeout: cfg.Sync.RequestTimeout,
	}, provider.Token)
	if err != nil {
		logger.Fatal("Failed to create remote client", err)
	}

	debouncer := debounce.New(client, cfg.Sync.DebounceWindow, cfg.Sync.RequestTimeout)
	cart := service.NewCartService(snapshots, client, debouncer, cfg.Sync.RequestTimeout)
	provider.Subscribe(cart.OnIdentityChange)
	defer cart.Close()

	phone := model.LineItem{
		ID:        "phone-13",
		Title:     "Phone 13",
		Subtitle:  "128GB, Black",
		UnitPrice: 79900,
		Category:  model.CategoryDevice,
	}
	cable := model.LineItem{
		ID:        "cable-usbc",
		Title:     "USB-C Cable",
		UnitPrice: 1500,
		Category:  model.CategoryAccessory,
	}

	// Anonymous session: everything stays local.
	for i := 0; i < 5; i++ {
		cart.AddItem(phone)
	}
	cart.AddItem(cable)
	cart.ApplyCoupon("WELCOME5", 500)

	fmt.Printf("anonymous cart: %d items, subtotal %d, total %d\n",
		len(cart.Items()), cart.Subtotal(), cart.FinalTotal())

	// Login: the accumulated cart merges into the account cart and
	// subsequent mutations sync remotely, debounced per item.
	token, err := demoToken(cfg.JWT.Secret, "demo-user")
	if err != nil {
		logger.Fatal("Failed to sign demo token", err)
	}
	if err := provider.SetToken(token); err != nil {
		logger.Fatal("Failed to establish identity", err)
	}

	// Rapid clicks again: one debounced write carries the final 8.
	for i := 0; i < 3; i++ {
		cart.UpdateQuantity(phone.ID, 1)
	}
	cart.MoveToWishlist(cable)

	time.Sleep(cfg.Sync.DebounceWindow + time.Second)

	fmt.Printf("merged cart: %d items, wishlist: %d, total %d\n",
		len(cart.Items()), len(cart.WishlistItems()), cart.FinalTotal())
}

func newSnapshotStore(cfg *config.Config) snapshot.Store {
	if cfg.Snapshot.Backend == "redis" {
		store, err := snapshot.NewRedisStore(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis snapshot store unavailable, falling back to file", map[string]interface{}{
				"error": err.Error(),
			})
			return snapshot.NewFileStore(cfg.Snapshot.Dir)
		}
		return store
	}
	return snapshot.NewFileStore(cfg.Snapshot.Dir)
}

func demoToken(secret, subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}
