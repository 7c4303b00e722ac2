package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TIANLI0/LeafScan/config"
	"github.com/TIANLI0/LeafScan/handler"
	"github.com/TIANLI0/LeafScan/middleware"
	"github.com/TIANLI0/LeafScan/service"
	"github.com/TIANLI0/LeafScan/templates"
	"github.com/TIANLI0/LeafScan/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode, cfg.Server.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting LeafScan server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("api_base_url", cfg.API.BaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := service.NewDetectorClient(cfg.API.BaseURL,
		service.WithMaxImageSize(cfg.Upload.MaxSize),
		service.WithDefaultIoU(cfg.API.IoUThreshold),
		service.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
	)

	// 启动时探测一次检测服务，失败只影响在线标记
	health := service.NewAPIHealth(client)
	go health.Check(ctx)

	var predictor service.Predictor = client
	if cfg.Redis.Enabled {
		cache := service.NewPredictionCache(&cfg.Redis)
		if err := cache.Ping(ctx); err != nil {
			utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		} else {
			utils.Logger.Info("redis connected successfully")
			predictor = service.NewCachedPredictor(client, cache)
		}
		defer cache.Close()
	}

	previews := service.NewPreviewStore()
	sessions := service.NewSessionStore(cfg.Session.TTL, func() *service.Controller {
		return service.NewController(predictor, previews, health)
	})

	sessionsDone := make(chan struct{})
	go func() {
		defer close(sessionsDone)
		sessions.Run(ctx, cfg.Session.SweepInterval)
	}()

	annotator := service.NewAnnotator(&cfg.Annotate)
	leafHandler := handler.NewLeafHandler(cfg, client, previews, annotator)

	tmpl, err := templates.Parse()
	if err != nil {
		utils.Logger.Fatal("failed to parse templates", zap.Error(err))
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.SetHTMLTemplate(tmpl)

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  Version,
			"api":      health.Status(),
			"upstream": health.Detail(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	handler.Register(r, leafHandler, middleware.Session(&cfg.Session, sessions))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Error("server shutdown failed", zap.Error(err))
	}

	<-sessionsDone
}
