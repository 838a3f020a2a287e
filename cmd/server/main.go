package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/cartsync/config"
	"github.com/ikkim/cartsync/internal/app/controller"
	"github.com/ikkim/cartsync/internal/app/repository"
	"github.com/ikkim/cartsync/internal/db"
	"github.com/ikkim/cartsync/internal/middleware"
	"github.com/ikkim/cartsync/internal/router"
	"github.com/ikkim/cartsync/internal/scheduler"
	"github.com/ikkim/cartsync/internal/websocket"
	"github.com/ikkim/cartsync/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting cart store server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	cartRepo := repository.NewCartRepository(db.GetDB())

	// Event hub for multi-device cart updates
	hub := websocket.NewHub()
	go hub.Run()

	cartController := controller.NewCartController(cartRepo, hub)
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Stale cart sweeper
	sweeper := scheduler.NewCartSweeper(cartRepo, &cfg.Sweeper)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start cart sweeper", err)
	}
	defer sweeper.Stop()

	r := router.NewRouter(cartController, authMiddleware, cfg)
	engine := r.Setup()

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}

	go func() {
		logger.Info("Server listening", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", err)
	}
	logger.Info("Server stopped")
}
