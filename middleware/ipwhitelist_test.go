package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whitelistStatus(t *testing.T, allowed []string, ip string) int {
	t.Helper()
	r := gin.New()
	r.Use(IPWhitelist(allowed))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	} else {
		req.RemoteAddr = "203.0.113.9:4242"
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestIPWhitelist_DisabledWhenEmpty(t *testing.T) {
	assert.Equal(t, http.StatusOK, whitelistStatus(t, nil, ""))
	assert.Equal(t, http.StatusOK, whitelistStatus(t, []string{}, "198.51.100.5"))
}

func TestIPWhitelist_Member(t *testing.T) {
	allowed := []string{"10.0.0.1", "10.0.0.2"}
	for _, ip := range allowed {
		assert.Equal(t, http.StatusOK, whitelistStatus(t, allowed, ip), "ip %s", ip)
	}
}

func TestIPWhitelist_NonMember(t *testing.T) {
	allowed := []string{"10.0.0.1", "10.0.0.2"}
	assert.Equal(t, http.StatusForbidden, whitelistStatus(t, allowed, "10.0.0.3"))
	assert.Equal(t, http.StatusForbidden, whitelistStatus(t, []string{"172.16.0.1"}, "198.51.100.5"))
}
