package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/office-hours-api/api/swagger"
	"github.com/noah-isme/office-hours-api/internal/handler"
	"github.com/noah-isme/office-hours-api/internal/middleware"
	"github.com/noah-isme/office-hours-api/internal/repository"
	"github.com/noah-isme/office-hours-api/internal/repository/memory"
	"github.com/noah-isme/office-hours-api/internal/service"
	"github.com/noah-isme/office-hours-api/migrations"
	"github.com/noah-isme/office-hours-api/pkg/cache"
	"github.com/noah-isme/office-hours-api/pkg/config"
	"github.com/noah-isme/office-hours-api/pkg/database"
	"github.com/noah-isme/office-hours-api/pkg/export"
	"github.com/noah-isme/office-hours-api/pkg/jobs"
	"github.com/noah-isme/office-hours-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/office-hours-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/office-hours-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title Office Hours API
// @version 1.0.0
// @description Professors publish office-hour slots, students book them.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Pinger{}
	stores, closeStores, err := openStores(ctx, cfg, logr, checks)
	if err != nil {
		logr.Sugar().Fatalw("failed to open stores", "driver", cfg.Store.Driver, "error", err)
	}
	defer closeStores()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and event stream", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Reviews.CacheTTL, logr, redisClient != nil)

	notifications := service.NewNotificationService(stores.Notifications, repository.NewRedisEventPublisher(redisClient, cfg.Notifications.Stream), metrics, logr)
	queue := jobs.NewQueue("lifecycle-notifications", notifications.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)

	reservations := service.NewReservationService(stores.Slots, stores.Appointments, service.NewQueuedDispatcher(queue), metrics, validate, logr)
	availability := service.NewAvailabilityService(stores.Slots, metrics, validate, logr)
	reviews := service.NewReviewService(stores.Reviews, stores.Appointments, cacheSvc, cfg.Reviews.CacheTTL, validate, logr)
	exports := service.NewExportService(stores.Appointments, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	verifier := service.NewTokenVerifier(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Appointments:  handler.NewAppointmentHandler(reservations, exports),
		Availability:  handler.NewAvailabilityHandler(availability),
		Notifications: handler.NewNotificationHandler(notifications),
		Reviews:       handler.NewReviewHandler(reviews),
	}.Register(r.Group(cfg.APIPrefix), middleware.JWT(verifier))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	// Handlers are done; flush queued notifications before the stores close.
	queue.Stop()
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.Pinger) (service.Stores, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logr.Warn("using in-memory store; data is lost on restart")
		return service.Stores{
			Slots:         memory.NewAvailabilityStore(),
			Appointments:  memory.NewAppointmentStore(),
			Notifications: memory.NewNotificationStore(),
			Reviews:       memory.NewReviewStore(),
		}, func() {}, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return service.Stores{}, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Store.RunMigrations {
		if err := database.Migrate(ctx, db.DB, migrations.FS, logr); err != nil {
			_ = db.Close()
			return service.Stores{}, nil, err
		}
	}
	checks["postgres"] = db

	timeout := repository.WithQueryTimeout(cfg.Database.QueryTimeout)
	return service.Stores{
			Slots:         repository.NewAvailabilityRepository(db, timeout),
			Appointments:  repository.NewAppointmentRepository(db, timeout),
			Notifications: repository.NewNotificationRepository(db, timeout),
			Reviews:       repository.NewReviewRepository(db, timeout),
		}, func() {
			if err := db.Close(); err != nil {
				logr.Warn("failed to close postgres", zap.Error(err))
			}
		}, nil
}
