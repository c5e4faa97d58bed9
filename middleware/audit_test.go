package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lonely-fr/perofish-server/audit"
	"github.com/lonely-fr/perofish-server/model"
	"github.com/lonely-fr/perofish-server/testutil"
)

func TestAudit_RecordsMutations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, zap.NewNop())

	r := gin.New()
	r.Use(TraceID(), Audit(svc))
	r.POST("/api/fishing/catch", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/api/leaderboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	body := strings.NewReader(`{"username":"Alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/fishing/catch", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Reads are not audited.
	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	svc.Stop(nil)

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "POST /api/fishing/catch", logs[0].Action)
	assert.Equal(t, "alice", logs[0].Username)
	assert.NotEmpty(t, logs[0].TraceID)
	assert.Empty(t, logs[0].Error)
}

func TestAudit_LargeBodyReachesHandlerIntact(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, zap.NewNop())

	type payload struct {
		Username    string `json:"username" binding:"required"`
		Description string `json:"description"`
	}
	r := gin.New()
	r.Use(TraceID(), Audit(svc))
	r.POST("/api/admin/catalog", func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"description_len": len(p.Description)})
	})

	long := strings.Repeat("x", 5000)
	body := `{"username":"alice","description":"` + long + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/catalog", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "5000")

	svc.Stop(nil)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "alice", entry.Username)
	assert.LessOrEqual(t, len(entry.Request), maxAuditBody+16)
}

func TestAudit_RecordsFailureStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, zap.NewNop())

	r := gin.New()
	r.Use(TraceID(), Audit(svc))
	r.POST("/api/trades", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"error": "busy"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)

	svc.Stop(nil)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "Conflict", entry.Error)
}
