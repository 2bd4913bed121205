package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/playrise/questengine/api/rest"
	"github.com/playrise/questengine/audit"
	"github.com/playrise/questengine/cache"
	"github.com/playrise/questengine/config"
	dbadapter "github.com/playrise/questengine/db"
	"github.com/playrise/questengine/game/notify"
	"github.com/playrise/questengine/game/quest"
	"github.com/playrise/questengine/game/wallet"
	mw "github.com/playrise/questengine/middleware"
	"github.com/playrise/questengine/model"
	"github.com/playrise/questengine/scheduler"
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

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Quest Catalog ----
	catalog, err := quest.LoadCatalog(cfg.Quest.CatalogPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	logger.Info("Quest catalog loaded", zap.Int("templates", catalog.Len()))

	// ---- Services ----
	walletSvc := wallet.NewService(db, logger)
	notifier := notify.New(db, pubsub, logger)
	questSvc := quest.NewService(db, catalog, walletSvc, notifier, auditSvc, cfg.Quest.NotifiableTypes, logger)

	// ---- Scheduler ----
	// Background tasks are backstops only; every List call sweeps inline.
	sched := scheduler.New(logger)
	defer sched.Stop()
	if cfg.Quest.SweepIntervalS > 0 {
		sched.AddTicker("quest_sweep", time.Duration(cfg.Quest.SweepIntervalS)*time.Second, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if n, err := questSvc.SweepExpired(ctx); err != nil {
				logger.Error("quest sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("quest sweep expired instances", zap.Int64("count", n))
			}
		})
	}
	if cfg.Quest.ReconcileIntervalS > 0 {
		sched.AddTicker("quest_reconcile", time.Duration(cfg.Quest.ReconcileIntervalS)*time.Second, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if n, err := questSvc.Reconcile(ctx); err != nil {
				logger.Error("quest reconcile failed", zap.Error(err))
			} else if n > 0 {
				logger.Warn("quest reconcile trimmed instances", zap.Int64("count", n))
			}
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	questH := apirest.NewQuestHandler(questSvc, logger)
	walletH := apirest.NewWalletHandler(walletSvc)
	notifyH := apirest.NewNotificationHandler(db)
	adminH := apirest.NewAdminHandler(db, questSvc, auditSvc, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		questsG := api.Group("/quests")
		questsG.Use(mw.Auth(cfg.Security, c))
		questsG.GET("", questH.List)
		questsG.POST("", questH.Create)
		questsG.GET("/count", questH.Count)
		questsG.POST("/refill", questH.Refill)
		questsG.POST("/:id/progress", questH.UpdateProgress)
		questsG.POST("/:id/complete", questH.Complete)
		questsG.POST("/:id/replace", questH.Replace)
		questsG.DELETE("/:id", questH.Delete)

		api.GET("/wallet", mw.Auth(cfg.Security, c), walletH.Balances)

		notifyG := api.Group("/notifications")
		notifyG.Use(mw.Auth(cfg.Security, c))
		notifyG.GET("", notifyH.List)
		notifyG.POST("/:id/read", notifyH.MarkRead)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/settlements/failed", adminH.FailedSettlements)
		adminG.POST("/settlements/:quest_id/resettle", adminH.Resettle)
		adminG.POST("/sweep", adminH.Sweep)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
