package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func limitedGET(t *testing.T, eng *gin.Engine, ip string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Real-IP", ip)
	w := httptest.NewRecorder()
	eng.ServeHTTP(w, req)
	return w.Code
}

func rateLimitedEngine(r rate.Limit, burst int) *gin.Engine {
	eng := gin.New()
	eng.Use(RateLimit(r, burst))
	eng.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func TestRateLimit_WithinBurst(t *testing.T) {
	eng := rateLimitedEngine(0.001, 4)
	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusOK, limitedGET(t, eng, "192.168.0.7"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, limitedGET(t, eng, "192.168.0.7"))
}

func TestRateLimit_BucketsPerClient(t *testing.T) {
	eng := rateLimitedEngine(0.001, 1)

	assert.Equal(t, http.StatusOK, limitedGET(t, eng, "192.168.1.1"))
	assert.Equal(t, http.StatusOK, limitedGET(t, eng, "192.168.1.2"))

	// One client exhausting its bucket must not affect the other.
	assert.Equal(t, http.StatusTooManyRequests, limitedGET(t, eng, "192.168.1.1"))
	assert.Equal(t, http.StatusOK, limitedGET(t, eng, "192.168.1.3"))
}
