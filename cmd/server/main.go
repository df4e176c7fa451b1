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

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/config"
	"github.com/d60-Lab/invitebatch/internal/api/handler"
	"github.com/d60-Lab/invitebatch/internal/api/middleware"
	"github.com/d60-Lab/invitebatch/internal/api/router"
	"github.com/d60-Lab/invitebatch/internal/cache"
	"github.com/d60-Lab/invitebatch/internal/repository"
	"github.com/d60-Lab/invitebatch/internal/service"
	"github.com/d60-Lab/invitebatch/pkg/database"
	"github.com/d60-Lab/invitebatch/pkg/jwt"
	"github.com/d60-Lab/invitebatch/pkg/logger"
	"github.com/d60-Lab/invitebatch/pkg/tracing"
)

// @title Invite Batch API
// @version 1.0
// @description 组织批量邀请：去重、事务落库、限并发发送与实时进度推送
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	statusCache := cache.NewBatchStatusCache(rdb, cfg.Redis.StatusTTL)

	var notifier service.Notifier = service.LogNotifier{}
	if cfg.Notifier.Kind == "webhook" {
		notifier = service.NewWebhookNotifier(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout)
	}

	batches := repository.NewBatchRepository(db)
	invites := repository.NewInviteRepository(db)
	roles := repository.NewRoleRepository(db)

	hub := service.NewProgressHub(cfg.Invite.SubscriberBuffer)
	dispatcher := service.NewBoundedDispatcher(notifier, batches, hub, service.DispatchOptions{
		Concurrency:   cfg.Invite.Concurrency,
		Retries:       cfg.Invite.Retries,
		Backoff:       cfg.Invite.Backoff,
		AcceptBaseURL: cfg.Invite.AcceptBaseURL,
	})
	persister := service.NewBatchPersister(db, batches, invites, roles)
	batchSvc := service.NewInviteBatchService(persister, dispatcher, batches, hub, statusCache, service.BatchLimits{
		MaxBatchSize:         cfg.Invite.MaxBatchSize,
		DefaultExpiresInDays: cfg.Invite.DefaultExpiresInDays,
	})

	h := handler.NewHandler(batchSvc, service.NewInviteService(invites), cfg.Invite.HeartbeatInterval)
	h.AddHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if rdb != nil {
		h.AddHealthCheck("redis", statusCache.Ping)
	}

	gin.SetMode(cfg.Server.Mode)
	engine := router.Setup(h, jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer), router.Options{
		ServiceName: cfg.Tracing.ServiceName,
		Tracing:     cfg.Tracing.Enabled,
		Sentry:      cfg.Sentry.DSN != "",
		RateLimiter: middleware.NewOrgRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: cfg.Server.ReadTimeout,
		// SSE 连接是长连接，写超时为 0 时不限制
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("notifier", cfg.Notifier.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
