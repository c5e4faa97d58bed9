package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/api/rest"
	"github.com/lonely-fr/perofish-server/cache"
	"github.com/lonely-fr/perofish-server/config"
	"github.com/lonely-fr/perofish-server/game/cooldown"
	"github.com/lonely-fr/perofish-server/game/drop"
	"github.com/lonely-fr/perofish-server/game/economy"
	"github.com/lonely-fr/perofish-server/game/fishing"
	"github.com/lonely-fr/perofish-server/game/queue"
	"github.com/lonely-fr/perofish-server/game/session"
	"github.com/lonely-fr/perofish-server/game/trade"
	"github.com/lonely-fr/perofish-server/game/upgrade"
	mw "github.com/lonely-fr/perofish-server/middleware"
	"github.com/lonely-fr/perofish-server/model"
	"github.com/lonely-fr/perofish-server/scheduler"
	"github.com/lonely-fr/perofish-server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "bot-shared-secret"

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	cache  cache.Cache
	eco    *economy.Service
	sec    config.SecurityConfig
}

var testWeights = map[string]int{"common": 100, "rare": 10}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
	require.NoError(t, err)
	sec := config.SecurityConfig{
		JWTSecret:         "test-jwt-secret",
		JWTTTLH:           72 * time.Hour,
		ServiceName:       "bot",
		ServiceSecretHash: string(hash),
	}
	game := config.GameConfig{
		FishingCooldownS:  3600,
		PassCooldownS:     86400,
		DailyReward:       100,
		DailyCooldownH:    24,
		WindowOpenMinute:  0,
		WindowCloseMinute: 60,
		MaxBonusCatches:   4,
		LeaderboardSize:   10,
		UpgradePointPrice: 100,
	}

	eco := economy.NewService(db, c, logger)
	gate := cooldown.NewGate(db, logger)
	drops := drop.NewEngine(db, testWeights, testWeights, nil, logger)
	sess := session.New(game.WindowOpenMinute, game.WindowCloseMinute, logger)
	upgrades := upgrade.NewService(db, eco, logger)
	fishSvc := fishing.NewService(db, drops, gate, eco, upgrades, sess, fishing.Config{
		BaseCooldown:    time.Duration(game.FishingCooldownS) * time.Second,
		MaxBonusCatches: game.MaxBonusCatches,
	}, logger)
	tradeSvc := trade.NewService(db, c, eco, logger)
	queueSvc := queue.NewService(db, gate,
		time.Duration(game.PassCooldownS)*time.Second, logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	authH := rest.NewAuthHandler(c, sec)
	fishH := rest.NewFishingHandler(fishSvc, gate)
	cdH := rest.NewCooldownHandler(gate, sess)
	invH := rest.NewInventoryHandler(eco, upgrades)
	tradeH := rest.NewTradeHandler(tradeSvc)
	upH := rest.NewUpgradeHandler(upgrades, game.UpgradePointPrice)
	queueH := rest.NewQueueHandler(queueSvc)
	playerH := rest.NewPlayerHandler(eco, game)
	adminH := rest.NewAdminHandler(db, gate, queueSvc, sched, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/login", authH.Login)

	botG := api.Group("")
	botG.Use(mw.Auth(sec, c))
	botG.POST("/fishing/catch", fishH.Catch)
	botG.GET("/fishing/cooldown/:username", fishH.Cooldown)
	botG.GET("/cooldowns/:username/:action", cdH.Check)
	botG.POST("/cooldowns/arm", cdH.Arm)
	botG.POST("/cooldowns/session", cdH.TryAcquire)
	botG.POST("/cooldowns/session/release", cdH.Release)
	botG.GET("/inventory/:username", invH.List)
	botG.POST("/inventory/:username/sell/:id", invH.Sell)
	botG.POST("/inventory/:username/sell-all", invH.SellAll)
	botG.GET("/inventory/:username/duplicates", invH.Duplicates)
	botG.POST("/inventory/:username/duplicates/resolve", invH.ResolveDuplicates)
	botG.POST("/trades", tradeH.Create)
	botG.GET("/trades", tradeH.List)
	botG.POST("/trades/:id/accept", tradeH.Accept)
	botG.POST("/trades/:id/cancel", tradeH.Cancel)
	botG.GET("/upgrades/tracks", upH.Tracks)
	botG.GET("/upgrades/:username", upH.Get)
	botG.POST("/upgrades/points", upH.BuyPoints)
	botG.POST("/upgrades", upH.Upgrade)
	botG.GET("/queue", queueH.List)
	botG.POST("/queue/join", queueH.Join)
	botG.POST("/queue/leave", queueH.Leave)
	botG.GET("/queue/position/:username", queueH.Position)
	botG.POST("/queue/pop", queueH.Pop)
	botG.POST("/queue/pass", queueH.UsePass)
	botG.GET("/players/:username/balance", playerH.Balance)
	botG.POST("/players/:username/daily", playerH.Daily)
	botG.GET("/leaderboard", playerH.Leaderboard)

	adminG := api.Group("/admin")
	adminG.Use(rest.AdminAuth("test-admin-key"))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.GET("/catalog", adminH.ListCatalog)
	adminG.POST("/catalog", adminH.AddItem)
	adminG.POST("/players/:username/ban", adminH.Ban)
	adminG.POST("/players/:username/unban", adminH.Unban)
	adminG.POST("/players/:username/ignore", adminH.SetIgnored)
	adminG.POST("/players/:username/passes", adminH.GrantPasses)
	adminG.GET("/scheduler", adminH.ListSchedulerTasks)

	return &testEnv{router: r, db: db, cache: c, eco: eco, sec: sec}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) adminRequest(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", "test-admin-key")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"service": "bot", "secret": testSecret})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["token"].(string)
}

func (e *testEnv) seedFish(t *testing.T, name, rarity string, price int64, unique bool) *model.ItemDef {
	t.Helper()
	def := &model.ItemDef{
		Type:   model.ItemTypeFish,
		Name:   name,
		Rarity: rarity,
		Price:  price,
		Unique: unique,
	}
	require.NoError(t, e.db.Create(def).Error)
	return def
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
