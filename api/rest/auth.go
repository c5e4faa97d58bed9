package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/cache"
	"github.com/lonely-fr/perofish-server/config"
	mw "github.com/lonely-fr/perofish-server/middleware"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler authenticates the chat-platform glue service. There is no
// end-user login: viewers act through the bot, which holds one shared
// secret and receives a session-backed JWT.
type AuthHandler struct {
	cache cache.Cache
	sec   config.SecurityConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(c cache.Cache, sec config.SecurityConfig) *AuthHandler {
	return &AuthHandler{cache: c, sec: sec}
}

type loginRequest struct {
	Service string `json:"service" binding:"required,min=2,max=32"`
	Secret  string `json:"secret" binding:"required,min=8,max=128"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Service != h.sec.ServiceName || h.sec.ServiceSecretHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword(
		[]byte(h.sec.ServiceSecretHash), []byte(req.Secret)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := mw.GenerateToken(req.Service, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	// Store session in cache as a simple KV entry so Exists() works uniformly.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Set(ctx, "session:"+token, req.Service, h.sec.JWTTTLH)

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"service": req.Service,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, "session:"+tokenStr)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
