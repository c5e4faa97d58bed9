package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/game/trade"
)

// TradeHandler handles trade-offer REST endpoints.
type TradeHandler struct {
	trades *trade.Service
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(t *trade.Service) *TradeHandler {
	return &TradeHandler{trades: t}
}

type createTradeRequest struct {
	Username        string `json:"username" binding:"required,min=2,max=32"`
	OfferedItemID   *int64 `json:"offered_item_id"`
	OfferedAmount   int64  `json:"offered_amount"`
	RequestedDefID  *int64 `json:"requested_def_id"`
	RequestedAmount int64  `json:"requested_amount"`
}

// Create handles POST /api/trades.
func (h *TradeHandler) Create(c *gin.Context) {
	var req createTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offer := trade.Offer{ItemID: req.OfferedItemID, Amount: req.OfferedAmount}
	request := trade.Request{ItemDefID: req.RequestedDefID, Amount: req.RequestedAmount}
	t, err := h.trades.Create(c.Request.Context(), req.Username, offer, request)
	if err != nil {
		if errors.Is(err, trade.ErrInvalidOffer) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// List handles GET /api/trades.
func (h *TradeHandler) List(c *gin.Context) {
	trades, err := h.trades.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

type respondRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
}

// Accept handles POST /api/trades/:id/accept.
func (h *TradeHandler) Accept(c *gin.Context) {
	tradeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.trades.Accept(c.Request.Context(), req.Username, tradeID)
	if err != nil {
		switch {
		case errors.Is(err, trade.ErrTradeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
		case errors.Is(err, trade.ErrResponderLacksItem):
			c.JSON(http.StatusConflict, gin.H{"error": "you lack the requested item"})
		case errors.Is(err, trade.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient funds"})
		case errors.Is(err, trade.ErrOfferNoLongerValid):
			c.JSON(http.StatusConflict, gin.H{"error": "offer no longer valid"})
		case errors.Is(err, trade.ErrInvalidOffer):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot accept own trade"})
		case errors.Is(err, trade.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "trade busy, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, t)
}

// Cancel handles POST /api/trades/:id/cancel.
func (h *TradeHandler) Cancel(c *gin.Context) {
	tradeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.trades.Cancel(c.Request.Context(), req.Username, tradeID); err != nil {
		if errors.Is(err, trade.ErrTradeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
