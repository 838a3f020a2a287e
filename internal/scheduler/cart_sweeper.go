package scheduler

import (
	"time"

	"github.com/ikkim/cartsync/config"
	"github.com/ikkim/cartsync/internal/app/repository"
	"github.com/ikkim/cartsync/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CartSweeper periodically purges cart rows that have not been touched
// within the retention window. Abandoned anonymous sessions otherwise
// accumulate forever.
type CartSweeper struct {
	cron      *cron.Cron
	cartRepo  repository.CartRepository
	retention time.Duration
	schedule  string
}

func NewCartSweeper(cartRepo repository.CartRepository, cfg *config.SweeperConfig) *CartSweeper {
	return &CartSweeper{
		cron:      cron.New(),
		cartRepo:  cartRepo,
		retention: cfg.Retention,
		schedule:  cfg.Schedule,
	}
}

func (s *CartSweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		cutoff := time.Now().Add(-s.retention)
		deleted, err := s.cartRepo.DeleteStale(cutoff)
		if err != nil {
			logger.Error("Failed to sweep stale carts", err)
			return
		}
		logger.Info("Swept stale carts", map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff,
		})
	})
	if err != nil {
		logger.Error("Failed to add cart sweeper cron job", err)
		return err
	}

	s.cron.Start()
	logger.Info("Cart sweeper started", map[string]interface{}{
		"schedule":  s.schedule,
		"retention": s.retention.String(),
	})
	return nil
}

func (s *CartSweeper) Stop() {
	s.cron.Stop()
	logger.Info("Cart sweeper stopped")
}
