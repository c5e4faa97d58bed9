package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/config"
	"github.com/lonely-fr/perofish-server/game/economy"
)

// PlayerHandler handles balance, daily reward and leaderboard endpoints.
type PlayerHandler struct {
	economy *economy.Service
	game    config.GameConfig
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(eco *economy.Service, game config.GameConfig) *PlayerHandler {
	return &PlayerHandler{economy: eco, game: game}
}

// Balance handles GET /api/players/:username/balance.
func (h *PlayerHandler) Balance(c *gin.Context) {
	username := c.Param("username")
	balance, err := h.economy.Balance(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "balance": balance})
}

// Daily handles POST /api/players/:username/daily.
func (h *PlayerHandler) Daily(c *gin.Context) {
	username := c.Param("username")
	gate := time.Duration(h.game.DailyCooldownH) * time.Hour
	balance, err := h.economy.ClaimDaily(c.Request.Context(), username, h.game.DailyReward, gate)
	if err != nil {
		if errors.Is(err, economy.ErrDailyNotReady) {
			c.JSON(http.StatusConflict, gin.H{"error": "daily reward already claimed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": h.game.DailyReward, "balance": balance})
}

// Leaderboard handles GET /api/leaderboard.
func (h *PlayerHandler) Leaderboard(c *gin.Context) {
	entries, err := h.economy.Leaderboard(c.Request.Context(), h.game.LeaderboardSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
