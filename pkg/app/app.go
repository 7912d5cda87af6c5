// Package app 组装配置、存储、业务服务与 HTTP 引擎，并管理它们的生命周期.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/RadiumAg/image-saas/pkg/cache"
	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/internal/handle"
	"github.com/RadiumAg/image-saas/pkg/internal/jobs"
	"github.com/RadiumAg/image-saas/pkg/internal/recognizer"
	"github.com/RadiumAg/image-saas/pkg/internal/router"
	"github.com/RadiumAg/image-saas/pkg/internal/service"
	"github.com/RadiumAg/image-saas/pkg/internal/storage"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/db"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/s3"
	"github.com/RadiumAg/image-saas/pkg/log"
	"github.com/RadiumAg/image-saas/pkg/metrics"
	"github.com/RadiumAg/image-saas/pkg/middleware"
	"github.com/RadiumAg/image-saas/pkg/queue"
	"github.com/RadiumAg/image-saas/pkg/scheduler"
	"github.com/RadiumAg/image-saas/pkg/tracing"
)

// App 一个完整的服务实例.
type App struct {
	Engine   *gin.Engine
	Services *service.Services

	config    *configs.AppConfig
	storage   *storage.Manager
	scheduler *scheduler.Scheduler
	logger    *zerolog.Logger
}

// Bootstrap 基于已加载的配置初始化日志、追踪与监控.
func Bootstrap() (*configs.AppConfig, error) {
	log.Init()

	config := configs.GetConfig()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return config, nil
}

// NewServices 打开存储并组装业务服务，调用方负责关闭返回的 Manager.
func NewServices(ctx context.Context, config *configs.AppConfig) (*service.Services, *storage.Manager, error) {
	mgr, err := storage.Open(ctx, config)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	l := log.Logger()

	if config.DB.AutoMigrate {
		applied, err := db.NewMigrator(mgr.DB.GetDB()).Migrate(ctx)
		if err != nil {
			_ = mgr.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}

		if applied > 0 {
			l.Info().Int("applied", applied).Msg("database migrated")
		}
	}

	if err := mgr.S3.EnsureBucket(ctx); err != nil {
		l.Warn().Err(err).Msg("ensure default bucket failed")
	}

	classifier, err := recognizer.New(config.Recognizer)
	if err != nil {
		_ = mgr.Close()
		return nil, nil, fmt.Errorf("init recognizer: %w", err)
	}

	presigner, err := s3.NewPresigner(config.S3.Presigner)
	if err != nil {
		_ = mgr.Close()
		return nil, nil, fmt.Errorf("init presigner: %w", err)
	}

	svc := service.New(service.Deps{
		DB:            mgr.DB.GetDB(),
		Publisher:     queue.NewGatedPublisher(mgr.MQ.Publisher(), config.Events),
		Presigner:     presigner,
		Classifier:    classifier,
		Cache:         cache.NewCache(mgr.KV),
		Lifecycle:     config.Lifecycle,
		Recognizer:    config.Recognizer,
		PresignExpiry: config.S3.PresignExpiryDuration(),
	})

	return svc, mgr, nil
}

// NewApp 创建服务实例：存储、消费者、定时任务与 HTTP 路由，调用前需先执行 configs.InitConfig.
func NewApp(ctx context.Context) (*App, error) {
	config, err := Bootstrap()
	if err != nil {
		return nil, err
	}

	svc, mgr, err := NewServices(ctx, config)
	if err != nil {
		return nil, err
	}

	svc.RegisterConsumers(mgr.MQ, config.S3.RemoveOnPurge)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(context.WithoutCancel(ctx), sched, svc.Files, svc.Tags, config.Lifecycle); err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
	)

	if config.Server.Gzip {
		engine.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	engine.Use(
		middleware.AuthMiddleware(config.Auth),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
	)

	if err := metrics.StartMetricsServer(config.Metrics, engine); err != nil {
		_ = mgr.Close()
		return nil, fmt.Errorf("start metrics: %w", err)
	}

	h := handle.New(svc,
		handle.WithHealthChecker("db", mgr.DB),
		handle.WithHealthChecker("s3", mgr.S3),
		handle.WithHealthChecker("mq", mgr.MQ),
		handle.WithHealthChecker("kv", mgr.KV),
		handle.WithScheduler(sched),
	)
	router.Register(engine.Group("/api/v1"), h, cache.NewCache(mgr.KV))

	return &App{
		Engine:    engine,
		Services:  svc,
		config:    config,
		storage:   mgr,
		scheduler: sched,
		logger:    l,
	}, nil
}

// Run 启动 HTTP 服务、消息消费者与定时任务，ctx 结束后优雅退出.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port)),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
		ReadTimeout:       a.config.Server.GetTimeoutDuration(),
		WriteTimeout:      a.config.Server.GetTimeoutDuration(),
	}

	shutdownTimeout := a.config.Server.GetShutdownDuration()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := a.storage.MQ.Run(ctx); err != nil {
			return fmt.Errorf("mq router: %w", err)
		}

		return nil
	})

	a.scheduler.Start()

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		a.logger.Info().Msg("shutting down")

		return errors.Join(srv.Shutdown(shutdownCtx), a.scheduler.Stop())
	})

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(err, tracing.ShutdownTracer(shutdownCtx), a.storage.Close())
}
