package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/internal/app/repository"
	apperrors "github.com/ikkim/cartsync/internal/errors"
	"github.com/ikkim/cartsync/internal/middleware"
	"github.com/ikkim/cartsync/internal/websocket"
)

// CartController is the remote cart store surface consumed by the
// client sync engine.
type CartController struct {
	cartRepo repository.CartRepository
	hub      *websocket.Hub
}

func NewCartController(cartRepo repository.CartRepository, hub *websocket.Hub) *CartController {
	return &CartController{
		cartRepo: cartRepo,
		hub:      hub,
	}
}

type setQuantityRequest struct {
	Category model.Category `json:"category" binding:"required"`
	Quantity *int           `json:"quantity" binding:"required"`
}

type mergeRequest struct {
	Items []model.MergeTuple `json:"items"`
}

type cartResponse struct {
	Items []model.LineItem `json:"items"`
}

// GetCart returns the user's server-held cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	records, err := ctrl.cartRepo.FindByUser(userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	c.JSON(http.StatusOK, cartResponse{Items: recordsToItems(records)})
}

// SetItemQuantity sets the absolute quantity for one item; 0 deletes
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) SetItemQuantity(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	itemID := c.Param("id")
	if itemID == "" {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Item id is required")
		return
	}

	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.CartInvalidPayload, "Invalid request body")
		return
	}
	if !req.Category.Valid() {
		apperrors.BadRequest(c, apperrors.CartInvalidPayload, "Unknown category")
		return
	}
	quantity := *req.Quantity
	if quantity < 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Quantity must be >= 0")
		return
	}

	if quantity == 0 {
		if err := ctrl.cartRepo.Delete(userID, itemID); err != nil {
			log.Error("Failed to delete cart item", err, map[string]interface{}{
				"user_id": userID,
				"item_id": itemID,
			})
			apperrors.InternalError(c, "Failed to delete cart item")
			return
		}
	} else {
		record := &model.CartRecord{
			UserID:   userID,
			ItemID:   itemID,
			Category: string(req.Category),
			Quantity: quantity,
		}
		if err := ctrl.cartRepo.Upsert(record); err != nil {
			log.Error("Failed to upsert cart item", err, map[string]interface{}{
				"user_id": userID,
				"item_id": itemID,
			})
			apperrors.InternalError(c, "Failed to store cart item")
			return
		}
	}

	log.Info("Cart item written", map[string]interface{}{
		"user_id":  userID,
		"item_id":  itemID,
		"quantity": quantity,
	})

	ctrl.notify(userID, websocket.CartEvent{
		Type:     websocket.EventItemSet,
		ItemID:   itemID,
		Quantity: quantity,
	})
	c.Status(http.StatusNoContent)
}

// ClearCart removes every item in the user's cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.cartRepo.DeleteByUser(userID); err != nil {
		log.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to clear cart")
		return
	}

	log.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})

	ctrl.notify(userID, websocket.CartEvent{Type: websocket.EventCartCleared})
	c.Status(http.StatusNoContent)
}

// MergeCart reconciles a batch of anonymous-session tuples with the
// stored cart. Policy: quantities are summed per item id. Returns the
// canonical resulting collection.
// POST /api/v1/cart/merge
func (ctrl *CartController) MergeCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.CartInvalidPayload, "Invalid request body")
		return
	}

	existing, err := ctrl.cartRepo.FindByUser(userID)
	if err != nil {
		log.Error("Failed to fetch cart for merge", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to merge cart")
		return
	}

	stored := make(map[string]model.CartRecord, len(existing))
	for _, record := range existing {
		stored[record.ItemID] = record
	}

	for _, tuple := range req.Items {
		if tuple.ID == "" || tuple.Quantity < 1 || !tuple.Category.Valid() {
			continue
		}
		quantity := tuple.Quantity
		if record, ok := stored[tuple.ID]; ok {
			quantity += record.Quantity
		}
		record := &model.CartRecord{
			UserID:   userID,
			ItemID:   tuple.ID,
			Category: string(tuple.Category),
			Quantity: quantity,
		}
		if err := ctrl.cartRepo.Upsert(record); err != nil {
			log.Error("Failed to upsert merged cart item", err, map[string]interface{}{
				"user_id": userID,
				"item_id": tuple.ID,
			})
			apperrors.InternalError(c, "Failed to merge cart")
			return
		}
	}

	merged, err := ctrl.cartRepo.FindByUser(userID)
	if err != nil {
		log.Error("Failed to fetch merged cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to merge cart")
		return
	}

	log.Info("Cart merged", map[string]interface{}{
		"user_id":  userID,
		"incoming": len(req.Items),
		"result":   len(merged),
	})

	ctrl.notify(userID, websocket.CartEvent{Type: websocket.EventCartMerged})
	c.JSON(http.StatusOK, cartResponse{Items: recordsToItems(merged)})
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Connect upgrades to a websocket and streams cart events to this
// device
// GET /ws
func (ctrl *CartController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	client := &websocket.Client{
		Hub:    ctrl.hub,
		Conn:   &websocket.Conn{Conn: conn},
		UserID: userID,
		Send:   make(chan []byte, 64),
	}
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func (ctrl *CartController) notify(userID string, event websocket.CartEvent) {
	if ctrl.hub != nil {
		ctrl.hub.NotifyUser(userID, event)
	}
}

// recordsToItems projects stored rows onto the wire item shape. The
// reference store has no catalog, so display fields stay empty; a
// production deployment enriches them from product data.
func recordsToItems(records []model.CartRecord) []model.LineItem {
	items := make([]model.LineItem, 0, len(records))
	for _, record := range records {
		items = append(items, model.LineItem{
			ID:       record.ItemID,
			Category: model.Category(record.Category),
			Quantity: record.Quantity,
		})
	}
	return items
}
