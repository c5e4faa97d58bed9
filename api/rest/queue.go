package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/queue"
)

// QueueHandler handles stream-slot queue REST endpoints.
type QueueHandler struct {
	queue *queue.Service
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(q *queue.Service) *QueueHandler {
	return &QueueHandler{queue: q}
}

type queueRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
}

// Join handles POST /api/queue/join.
func (h *QueueHandler) Join(c *gin.Context) {
	var req queueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.queue.Join(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			c.JSON(http.StatusConflict, gin.H{"error": "already queued"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	pos, _ := h.queue.Position(c.Request.Context(), req.Username)
	c.JSON(http.StatusCreated, gin.H{"entry": entry, "position": pos})
}

// Leave handles POST /api/queue/leave.
func (h *QueueHandler) Leave(c *gin.Context) {
	var req queueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.queue.Leave(c.Request.Context(), req.Username); err != nil {
		if errors.Is(err, queue.ErrNotQueued) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not queued"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// List handles GET /api/queue.
func (h *QueueHandler) List(c *gin.Context) {
	entries, err := h.queue.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": entries, "count": len(entries)})
}

// Position handles GET /api/queue/position/:username.
func (h *QueueHandler) Position(c *gin.Context) {
	username := strings.ToLower(c.Param("username"))
	pos, err := h.queue.Position(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, queue.ErrNotQueued) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not queued"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	passes, _ := h.queue.Passes(c.Request.Context(), username)
	c.JSON(http.StatusOK, gin.H{"position": pos, "passes": passes})
}

// Pop handles POST /api/queue/pop.
func (h *QueueHandler) Pop(c *gin.Context) {
	head, err := h.queue.Pop(c.Request.Context())
	if err != nil {
		if errors.Is(err, queue.ErrQueueEmpty) {
			c.JSON(http.StatusNotFound, gin.H{"error": "queue is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, head)
}

// UsePass handles POST /api/queue/pass.
func (h *QueueHandler) UsePass(c *gin.Context) {
	var req queueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.queue.UsePass(c.Request.Context(), req.Username); err != nil {
		switch {
		case errors.Is(err, queue.ErrNotQueued):
			c.JSON(http.StatusNotFound, gin.H{"error": "not queued"})
		case errors.Is(err, queue.ErrNoPasses):
			c.JSON(http.StatusConflict, gin.H{"error": "no passes available"})
		case errors.Is(err, queue.ErrPassCoolingDown):
			c.JSON(http.StatusConflict, gin.H{"error": "pass recently used"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	pos, _ := h.queue.Position(c.Request.Context(), req.Username)
	c.JSON(http.StatusOK, gin.H{"ok": true, "position": pos})
}
