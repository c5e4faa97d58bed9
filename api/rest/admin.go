package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/cooldown"
	"github.com/lonely-fr/perofish-server/game/drop"
	"github.com/lonely-fr/perofish-server/game/queue"
	"github.com/lonely-fr/perofish-server/model"
	"github.com/lonely-fr/perofish-server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	gate   *cooldown.Gate
	queue  *queue.Service
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, gate *cooldown.Gate, q *queue.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, gate: gate, queue: q, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var players, defs, items, trades int64
	h.db.Model(&model.Player{}).Count(&players)
	h.db.Model(&model.ItemDef{}).Count(&defs)
	h.db.Model(&model.InventoryItem{}).Count(&items)
	h.db.Model(&model.TradeOffer{}).Where("status = ?", model.TradeActive).Count(&trades)
	c.JSON(http.StatusOK, gin.H{
		"players":         players,
		"catalog_size":    defs,
		"inventory_items": items,
		"active_trades":   trades,
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

type addItemRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=128"`
	Type        string `json:"type" binding:"required,oneof=fish item"`
	Price       int64  `json:"price" binding:"min=0"`
	Rarity      string `json:"rarity" binding:"required"`
	Unique      bool   `json:"unique"`
	Description string `json:"description"`
}

// AddItem adds one catalog entry.
// POST /api/admin/catalog
func (h *AdminHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !drop.ValidRarity(req.Rarity) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rarity"})
		return
	}
	def := model.ItemDef{
		Name:        req.Name,
		Type:        req.Type,
		Price:       req.Price,
		Rarity:      req.Rarity,
		Unique:      req.Unique,
		Description: req.Description,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&def).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "item already exists"})
		return
	}
	h.logger.Info("admin added catalog item",
		zap.String("name", def.Name), zap.String("rarity", def.Rarity))
	c.JSON(http.StatusCreated, def)
}

// ListCatalog returns the full catalog.
// GET /api/admin/catalog
func (h *AdminHandler) ListCatalog(c *gin.Context) {
	var defs []model.ItemDef
	q := h.db.WithContext(c.Request.Context()).Order("id")
	if typ := c.Query("type"); typ != "" {
		q = q.Where("type = ?", typ)
	}
	if err := q.Find(&defs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": defs, "count": len(defs)})
}

type banRequest struct {
	Reason   string `json:"reason"`
	Duration string `json:"duration"` // empty means permanent
}

// Ban bans a player, permanently or for a duration.
// POST /api/admin/players/:username/ban
func (h *AdminHandler) Ban(c *gin.Context) {
	username := strings.ToLower(c.Param("username"))
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
			return
		}
		if err := h.gate.Ban(ctx, username, req.Reason, d); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		h.logger.Info("admin temp-banned player",
			zap.String("username", username), zap.Duration("duration", d))
		c.JSON(http.StatusOK, gin.H{"ok": true, "until": time.Now().Add(d)})
		return
	}

	res := h.db.WithContext(ctx).Model(&model.Player{}).
		Where("username = ?", username).
		Update("banned", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	h.logger.Info("admin banned player", zap.String("username", username))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Unban lifts both permanent and temporary bans.
// POST /api/admin/players/:username/unban
func (h *AdminHandler) Unban(c *gin.Context) {
	username := strings.ToLower(c.Param("username"))
	ctx := c.Request.Context()
	if err := h.gate.Unban(ctx, username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.db.WithContext(ctx).Model(&model.Player{}).
		Where("username = ?", username).
		Update("banned", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.logger.Info("admin unbanned player", zap.String("username", username))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type ignoreRequest struct {
	Ignored *bool `json:"ignored" binding:"required"`
}

// SetIgnored flags a player to be silently skipped by the bot.
// POST /api/admin/players/:username/ignore
func (h *AdminHandler) SetIgnored(c *gin.Context) {
	username := strings.ToLower(c.Param("username"))
	var req ignoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&model.Player{}).
		Where("username = ?", username).
		Update("ignored", *req.Ignored)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	h.logger.Info("admin set ignore flag",
		zap.String("username", username), zap.Bool("ignored", *req.Ignored))
	c.JSON(http.StatusOK, gin.H{"ok": true, "ignored": *req.Ignored})
}

type grantPassRequest struct {
	Count int `json:"count" binding:"required,min=1,max=100"`
}

// GrantPasses adds queue pass tokens to a player.
// POST /api/admin/players/:username/passes
func (h *AdminHandler) GrantPasses(c *gin.Context) {
	username := c.Param("username")
	var req grantPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	total, err := h.queue.GrantPass(c.Request.Context(), username, req.Count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "passes": total})
}

// ListSchedulerTasks returns the registered periodic tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// AdminAuth guards admin routes with a shared key header.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
