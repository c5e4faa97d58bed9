package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/cooldown"
	"github.com/lonely-fr/perofish-server/game/session"
)

// gatedActions are the persistent action classes the gate tracks.
var gatedActions = map[string]bool{
	cooldown.ActionFish:  true,
	cooldown.ActionPass:  true,
	cooldown.ActionSlots: true,
	cooldown.ActionPaste: true,
	cooldown.ActionDaily: true,
}

// CooldownHandler exposes the generic cooldown gate plus the ephemeral
// session cooldowns (duel, horoscope) that reset on restart.
type CooldownHandler struct {
	gate    *cooldown.Gate
	session *session.Session
}

// NewCooldownHandler creates a CooldownHandler.
func NewCooldownHandler(gate *cooldown.Gate, sess *session.Session) *CooldownHandler {
	return &CooldownHandler{gate: gate, session: sess}
}

// Check handles GET /api/cooldowns/:username/:action.
func (h *CooldownHandler) Check(c *gin.Context) {
	username := strings.ToLower(c.Param("username"))
	action := c.Param("action")
	if !gatedActions[action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	wait, err := h.gate.Check(c.Request.Context(), username, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action, "wait": wait})
}

type armRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Action   string `json:"action" binding:"required"`
	Seconds  int64  `json:"seconds" binding:"required,min=1,max=86400"`
}

// Arm handles POST /api/cooldowns/arm. It unconditionally overwrites any
// prior timestamp for the (user, action) pair.
func (h *CooldownHandler) Arm(c *gin.Context) {
	var req armRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !gatedActions[req.Action] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	username := strings.ToLower(req.Username)
	d := time.Duration(req.Seconds) * time.Second
	if err := h.gate.Arm(c.Request.Context(), username, req.Action, d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": req.Action, "wait": req.Seconds})
}

type sessionCooldownRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Action   string `json:"action" binding:"required,min=1,max=32"`
	Seconds  int64  `json:"seconds" binding:"required,min=1,max=86400"`
}

type sessionReleaseRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Action   string `json:"action" binding:"required,min=1,max=32"`
}

// TryAcquire handles POST /api/cooldowns/session. These cooldowns live in
// process memory only and callers must not assume they survive a restart.
func (h *CooldownHandler) TryAcquire(c *gin.Context) {
	var req sessionCooldownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key := req.Action + ":" + strings.ToLower(req.Username)
	ok, remaining := h.session.TryAcquire(key, time.Duration(req.Seconds)*time.Second)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{
			"error": "still cooling down",
			"wait":  int64(remaining.Seconds()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Release handles POST /api/cooldowns/session/release, clearing an
// ephemeral cooldown early (a duel that never started, for example).
func (h *CooldownHandler) Release(c *gin.Context) {
	var req sessionReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.session.Release(req.Action + ":" + strings.ToLower(req.Username))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
