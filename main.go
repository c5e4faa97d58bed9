package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/lonely-fr/perofish-server/api/rest"
	"github.com/lonely-fr/perofish-server/audit"
	"github.com/lonely-fr/perofish-server/cache"
	"github.com/lonely-fr/perofish-server/config"
	dbadapter "github.com/lonely-fr/perofish-server/db"
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
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Game Services ----
	eco := economy.NewService(db, c, logger)
	gate := cooldown.NewGate(db, logger)
	drops := drop.NewEngine(db,
		drop.WeightTable(cfg.Game.WeightsNormal),
		drop.WeightTable(cfg.Game.WeightsLimited),
		nil, logger)
	sess := session.New(cfg.Game.WindowOpenMinute, cfg.Game.WindowCloseMinute, logger)
	upgrades := upgrade.NewService(db, eco, logger)
	fishSvc := fishing.NewService(db, drops, gate, eco, upgrades, sess, fishing.Config{
		BaseCooldown:    time.Duration(cfg.Game.FishingCooldownS) * time.Second,
		MaxBonusCatches: cfg.Game.MaxBonusCatches,
	}, logger)
	tradeSvc := trade.NewService(db, c, eco, logger)
	queueSvc := queue.NewService(db, gate,
		time.Duration(cfg.Game.PassCooldownS)*time.Second, logger)

	// ---- Periodic Scheduler Tasks ----
	sched.AddTicker("window_tick", time.Second, func() {
		sess.Tick()
	})
	sched.AddTicker("leaderboard_refresh",
		time.Duration(cfg.Game.LeaderboardRefreshS)*time.Second, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := eco.RefreshLeaderboard(ctx, cfg.Game.LeaderboardSize); err != nil {
				logger.Warn("leaderboard refresh failed", zap.Error(err))
			}
		})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger), mw.Audit(auditSvc))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(c, cfg.Security)
	fishH := apirest.NewFishingHandler(fishSvc, gate)
	cdH := apirest.NewCooldownHandler(gate, sess)
	invH := apirest.NewInventoryHandler(eco, upgrades)
	tradeH := apirest.NewTradeHandler(tradeSvc)
	upH := apirest.NewUpgradeHandler(upgrades, cfg.Game.UpgradePointPrice)
	queueH := apirest.NewQueueHandler(queueSvc)
	playerH := apirest.NewPlayerHandler(eco, cfg.Game)
	adminH := apirest.NewAdminHandler(db, gate, queueSvc, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)

		botG := api.Group("")
		botG.Use(mw.Auth(cfg.Security, c))

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
		adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs), apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/catalog", adminH.ListCatalog)
		adminG.POST("/catalog", adminH.AddItem)
		adminG.POST("/players/:username/ban", adminH.Ban)
		adminG.POST("/players/:username/unban", adminH.Unban)
		adminG.POST("/players/:username/ignore", adminH.SetIgnored)
		adminG.POST("/players/:username/passes", adminH.GrantPasses)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
