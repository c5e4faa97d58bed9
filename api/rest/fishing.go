package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/cooldown"
	"github.com/lonely-fr/perofish-server/game/drop"
	"github.com/lonely-fr/perofish-server/game/fishing"
)

// FishingHandler handles catch REST endpoints.
type FishingHandler struct {
	fishing *fishing.Service
	gate    *cooldown.Gate
}

// NewFishingHandler creates a new FishingHandler.
func NewFishingHandler(f *fishing.Service, gate *cooldown.Gate) *FishingHandler {
	return &FishingHandler{fishing: f, gate: gate}
}

type catchRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Limited  bool   `json:"limited"`
}

// Catch handles POST /api/fishing/catch.
func (h *FishingHandler) Catch(c *gin.Context) {
	var req catchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := drop.ModeNormal
	if req.Limited {
		mode = drop.ModeLimited
	}
	res, err := h.fishing.Catch(c.Request.Context(), req.Username, mode)
	if err != nil {
		switch {
		case errors.Is(err, fishing.ErrBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "user is banned"})
		case errors.Is(err, fishing.ErrIgnored):
			c.JSON(http.StatusForbidden, gin.H{"error": "user is ignored"})
		case errors.Is(err, fishing.ErrWindowClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "fishing window is closed"})
		case errors.Is(err, drop.ErrNoItemsAvailable):
			c.JSON(http.StatusConflict, gin.H{"error": "nothing left to catch"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

// Cooldown handles GET /api/fishing/cooldown/:username.
func (h *FishingHandler) Cooldown(c *gin.Context) {
	username := strings.ToLower(c.Param("username"))
	wait, err := h.gate.Check(c.Request.Context(), username, cooldown.ActionFish)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wait": wait})
}
