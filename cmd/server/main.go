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

	_ "blog_api/internal/domain/comment"
	_ "blog_api/internal/domain/common"
	_ "blog_api/internal/domain/post"
	_ "blog_api/internal/domain/stats"
	_ "blog_api/internal/domain/user"
	"blog_api/internal/pkg/config"
	"blog_api/internal/pkg/content"
	"blog_api/internal/pkg/mailer"
	"blog_api/internal/pkg/middleware"
	"blog_api/internal/pkg/notify"
	"blog_api/internal/pkg/registry"
	"blog_api/internal/pkg/schema"
	"blog_api/internal/pkg/telemetry"
	"blog_api/pkg/cache"
	"blog_api/pkg/database"
	"blog_api/pkg/logger"
	"blog_api/pkg/metrics"
	"blog_api/pkg/security"
	"blog_api/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// .env 不存在时直接使用系统环境变量
	_ = godotenv.Load()

	config.LoadConfig()
	cfg := &config.GlobalConfig

	logger.Init(cfg.Log.Level, cfg.Log.File, !cfg.IsProduction())
	defer logger.Sync()

	tp, err := telemetry.InitTracer(cfg.Telemetry, cfg.App.Env)
	if err != nil {
		logger.Log.Fatal("failed to init tracer", zap.Error(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	db := database.InitDatabase(cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if cfg.Database.AutoMigrate {
		if err := schema.AutoMigrate(db); err != nil {
			logger.Log.Fatal("auto migrate failed", zap.Error(err))
		}
	}
	rdb := database.InitRedis(cfg.Redis)

	catalog, err := content.LoadDir(cfg.Content.Dir)
	if err != nil {
		logger.Log.Warn("content catalog not loaded, posting comments will fail", zap.String("dir", cfg.Content.Dir), zap.Error(err))
		catalog = content.NewStaticCatalog()
	}
	logger.Log.Info("content catalog loaded", zap.Int("posts", catalog.Len()))

	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		logger.Log.Fatal("failed to init mailer", zap.Error(err))
	}
	notifier := notify.NewDispatcher(sender, notify.Options{
		From:       mailFrom(cfg.Mail),
		OwnerEmail: cfg.App.AuthorEmail,
		AppURL:     cfg.App.URL,
		SiteName:   cfg.App.SiteName,
	})

	utils.RegisterValidators()
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	if tp != nil {
		r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	r.Use(
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.MetricsMiddleware(metrics.GetGlobalCollector()),
		middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(rate.Limit(cfg.Server.FloodQPS), cfg.Server.FloodBurst)),
		cors.New(corsConfig(cfg.Server.CORSOrigin)),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.IdentityMiddleware(cfg.JWT.Secret),
	)

	redisCache := cache.NewRedisCache(rdb, cfg.Redis.Prefix)
	moduleCtx := &registry.ModuleContext{
		DB:       db,
		Redis:    rdb,
		Router:   r,
		Cache:    redisCache,
		Counter:  cache.NewCounterCache(redisCache),
		Limiter:  security.NewSlidingWindow(rdb, cfg.Redis.Prefix, security.DefaultLimit),
		Catalog:  catalog,
		Notifier: notifier,
		Config:   cfg,
	}
	if err := registry.InitModules(moduleCtx); err != nil {
		logger.Log.Fatal("failed to init modules", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("server forced to shutdown", zap.Error(err))
	}
	_ = rdb.Close()
	logger.Log.Info("server exited")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	return c
}

func mailFrom(cfg config.MailConfig) string {
	if cfg.FromName == "" {
		return cfg.From
	}
	return fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
}
