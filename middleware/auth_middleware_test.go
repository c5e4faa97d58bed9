package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/cache/local"
	"github.com/lonely-fr/perofish-server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *local.LocalCache, config.SecurityConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, err := local.NewCache(local.Config{})
	require.NoError(t, err)
	sec := config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: time.Hour}

	r := gin.New()
	r.GET("/me", Auth(sec, c), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, GetService(ctx))
	})
	return r, c, sec
}

func issueSession(t *testing.T, c *local.LocalCache, sec config.SecurityConfig, service string) string {
	t.Helper()
	tok, err := GenerateToken(service, sec.JWTSecret, sec.JWTTTLH)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "session:"+tok, service, sec.JWTTTLH))
	return tok
}

func TestAuth_MissingToken(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_BadToken(t *testing.T) {
	r, _, _ := newAuthRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_NoSession(t *testing.T) {
	r, _, sec := newAuthRouter(t)
	tok, err := GenerateToken("bot", sec.JWTSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidSession(t *testing.T) {
	r, c, sec := newAuthRouter(t)
	tok := issueSession(t, c, sec, "bot")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bot", w.Body.String())
}

func TestAuth_SessionRevoked(t *testing.T) {
	r, c, sec := newAuthRouter(t)
	tok := issueSession(t, c, sec, "bot")
	require.NoError(t, c.Del(context.Background(), "session:"+tok))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
