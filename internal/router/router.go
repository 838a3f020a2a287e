package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/cartsync/config"
	"github.com/ikkim/cartsync/internal/app/controller"
	"github.com/ikkim/cartsync/internal/middleware"
)

type Router struct {
	cartController *controller.CartController
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController: cartController,
		authMiddleware: authMiddleware,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		cart := api.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.PUT("/items/:id", r.cartController.SetItemQuantity)
			cart.POST("/merge", r.cartController.MergeCart)
		}
	}

	ws := router.Group("/ws")
	ws.Use(r.authMiddleware.Authenticate())
	{
		ws.GET("", r.cartController.Connect)
	}

	return router
}
