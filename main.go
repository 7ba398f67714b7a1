package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"AMS-backend/docs"
	"AMS-backend/internal/asset_mgmt/assets"
	"AMS-backend/internal/asset_mgmt/assignments"
	"AMS-backend/internal/asset_mgmt/categories"
	"AMS-backend/internal/asset_mgmt/disposals"
	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/asset_mgmt/labels"
	"AMS-backend/internal/asset_mgmt/timeline"
	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/auth"
	"AMS-backend/internal/platform/db"
	"AMS-backend/internal/platform/httpx"
	"AMS-backend/internal/platform/logger"
	"AMS-backend/internal/platform/metrics"
	"AMS-backend/internal/platform/middleware"
)

func main() {
	// 設定読み込み（AMS_CONFIG で差し替え可）
	path := os.Getenv("AMS_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := db.LoadConfig(path)
	if err != nil {
		panic(err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.L()
	log.Info("starting", zap.String("mode", cfg.Mode), zap.String("version", cfg.Version))

	h, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer h.Close()
	log.Info("connected to DB", zap.String("driver", h.Dialect.String()))

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx, h)
		cancel()
		if err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// TLS 証明書が設定されていれば config/tls/<mode>/ 配下から読む
	useTLS := cfg.Server.TLS.Cert != "" && cfg.Server.TLS.Key != ""
	go func() {
		var err error
		if useTLS {
			dir := filepath.Join("config", "tls", cfg.Mode)
			log.Info("listening (tls)", zap.String("addr", srv.Addr))
			err = srv.ListenAndServeTLS(filepath.Join(dir, cfg.Server.TLS.Cert), filepath.Join(dir, cfg.Server.TLS.Key))
		} else {
			log.Info("listening", zap.String("addr", srv.Addr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func newRouter(cfg *db.Config, h *db.Handle) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestID(), middleware.AccessLog())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location", middleware.RequestIDHeader},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", metrics.Handler())

	docs.SwaggerInfo.Version = cfg.Version
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// サービスの組み立て
	rec := history.NewRecorder(h.DB)
	mgr := assignments.NewManager(h, rec)
	reg := assets.NewRegistry(h, rec, mgr)
	proc := disposals.NewProcessor(h, rec, mgr)
	tb := timeline.NewBuilder(h.DB, mgr.Store(), rec)

	// /api/v1
	api := r.Group("/api/v1")
	protected := api.Group("")
	if cfg.Auth.Enabled {
		secret := []byte(cfg.Auth.JWTSecret)
		auth.RegisterRoutes(api.Group("/auth"), auth.NewService(h.DB, secret, cfg.Auth.TokenTTL))
		protected.Use(auth.RequireAuth(secret))
	}
	assets.RegisterRoutes(protected, reg)
	assignments.RegisterRoutes(protected, mgr)
	disposals.RegisterRoutes(protected, proc)
	history.RegisterRoutes(protected, rec)
	timeline.RegisterRoutes(protected, tb)
	categories.RegisterRoutes(protected, categories.NewService(h.DB))
	labels.RegisterRoutes(protected, labels.NewService(h.DB))

	r.NoRoute(func(c *gin.Context) {
		httpx.Fail(c, apperr.NotFound("route not found"))
	})
	return r
}
