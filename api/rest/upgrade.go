package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/economy"
	"github.com/lonely-fr/perofish-server/game/upgrade"
	"github.com/lonely-fr/perofish-server/model"
)

// UpgradeHandler handles progression REST endpoints.
type UpgradeHandler struct {
	upgrades   *upgrade.Service
	pointPrice int64
}

// NewUpgradeHandler creates a new UpgradeHandler.
func NewUpgradeHandler(up *upgrade.Service, pointPrice int64) *UpgradeHandler {
	return &UpgradeHandler{upgrades: up, pointPrice: pointPrice}
}

// Get handles GET /api/upgrades/:username.
func (h *UpgradeHandler) Get(c *gin.Context) {
	username := c.Param("username")
	up, err := h.upgrades.Get(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, up)
}

// Tracks handles GET /api/upgrades/tracks.
func (h *UpgradeHandler) Tracks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": upgrade.Tracks, "point_price": h.pointPrice})
}

type buyPointsRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Points   int64  `json:"points" binding:"required,min=1,max=1000"`
}

// BuyPoints handles POST /api/upgrades/points.
func (h *UpgradeHandler) BuyPoints(c *gin.Context) {
	var req buyPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Shop discount shaves 0.1% off the point price per level.
	discount := int64(h.upgrades.Level(c.Request.Context(), req.Username, model.TrackShopDiscount))
	unit := h.pointPrice * (1000 - discount) / 1000
	if unit < 1 {
		unit = 1
	}
	cost := req.Points * unit
	total, err := h.upgrades.PurchasePoints(c.Request.Context(), req.Username, req.Points, cost)
	if err != nil {
		if errors.Is(err, economy.ErrInsufficientFunds) {
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient funds"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": total, "spent": cost})
}

type upgradeRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Track    string `json:"track" binding:"required"`
}

// Upgrade handles POST /api/upgrades.
func (h *UpgradeHandler) Upgrade(c *gin.Context) {
	var req upgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	level, err := h.upgrades.Upgrade(c.Request.Context(), req.Username, req.Track)
	if err != nil {
		switch {
		case errors.Is(err, upgrade.ErrUnknownTrack):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown track"})
		case errors.Is(err, upgrade.ErrMaxLevelReached):
			c.JSON(http.StatusConflict, gin.H{"error": "max level reached"})
		case errors.Is(err, upgrade.ErrInsufficientPoints):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient points"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"track": req.Track, "level": level})
}
