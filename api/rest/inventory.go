package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/economy"
	"github.com/lonely-fr/perofish-server/game/upgrade"
	"github.com/lonely-fr/perofish-server/model"
)

// InventoryHandler handles inventory and sale REST endpoints.
type InventoryHandler struct {
	economy  *economy.Service
	upgrades *upgrade.Service
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(eco *economy.Service, up *upgrade.Service) *InventoryHandler {
	return &InventoryHandler{economy: eco, upgrades: up}
}

// List handles GET /api/inventory/:username.
func (h *InventoryHandler) List(c *gin.Context) {
	username := c.Param("username")
	items, err := h.economy.Inventory(c.Request.Context(), username, c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items, "count": len(items)})
}

// Sell handles POST /api/inventory/:username/sell/:id.
func (h *InventoryHandler) Sell(c *gin.Context) {
	username := c.Param("username")
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx := c.Request.Context()
	saleLevel := h.upgrades.Level(ctx, username, model.TrackSalePriceIncrease)
	res, err := h.economy.Sell(ctx, username, itemID, saleLevel)
	if err != nil {
		if errors.Is(err, economy.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// SellAll handles POST /api/inventory/:username/sell-all.
func (h *InventoryHandler) SellAll(c *gin.Context) {
	username := c.Param("username")
	ctx := c.Request.Context()
	saleLevel := h.upgrades.Level(ctx, username, model.TrackSalePriceIncrease)
	res, err := h.economy.SellAll(ctx, username, saleLevel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Duplicates handles GET /api/inventory/:username/duplicates.
func (h *InventoryHandler) Duplicates(c *gin.Context) {
	username := c.Param("username")
	groups, err := h.economy.Duplicates(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": groups, "count": len(groups)})
}

type resolveRequest struct {
	Name string `json:"name" binding:"required"`
}

// ResolveDuplicates handles POST /api/inventory/:username/duplicates/resolve.
// Keeps the cheapest instance of the named item and sells the rest.
func (h *InventoryHandler) ResolveDuplicates(c *gin.Context) {
	username := c.Param("username")
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	saleLevel := h.upgrades.Level(ctx, username, model.TrackSalePriceIncrease)
	res, err := h.economy.ResolveDuplicates(ctx, username, req.Name, saleLevel)
	if err != nil {
		if errors.Is(err, economy.ErrNoDuplicates) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no duplicates of that item"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}
