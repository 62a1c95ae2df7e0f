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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentor-booking-api/api/swagger"
	"github.com/noah-isme/mentor-booking-api/internal/handler"
	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
	"github.com/noah-isme/mentor-booking-api/internal/service"
	"github.com/noah-isme/mentor-booking-api/pkg/cache"
	"github.com/noah-isme/mentor-booking-api/pkg/config"
	"github.com/noah-isme/mentor-booking-api/pkg/database"
	"github.com/noah-isme/mentor-booking-api/pkg/jobs"
	"github.com/noah-isme/mentor-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentor-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mentor-booking-api/pkg/middleware/requestid"
)

// @title Mentor Booking API
// @version 1.0.0
// @description Mentor availability, slot resolution and session booking.
// @BasePath /api/v1
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, mentor cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	app := buildApp(cfg, db, redisClient, metrics, logr)

	app.notifications.Start(ctx)
	defer app.notifications.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router        *gin.Engine
	notifications *service.NotificationService
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, logr *zap.Logger) *application {
	validate := service.NewValidator()

	ruleRepo := repository.NewAvailabilityRuleRepository(db)
	exceptionRepo := repository.NewAvailabilityExceptionRepository(db)
	legacyRepo := repository.NewLegacyAvailabilityRepository(db)
	mentorRepo := repository.NewMentorRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.DefaultTTL, cfg.Cache.KeyPrefix, logr, cfg.Cache.Enabled)
	}

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	mentors := service.NewMentorDirectory(mentorRepo, cacheSvc, cfg.Cache.MentorTTL, cfg.Booking.DefaultTimezone, logr)
	availabilitySvc := service.NewAvailabilityService(ruleRepo, exceptionRepo, legacyRepo, mentors, cfg.Booking.DefaultTimezone, validate, logr)
	slotSvc := service.NewSlotService(ruleRepo, exceptionRepo, legacyRepo, sessionRepo, mentors, metrics, service.SlotConfig{
		Step:      cfg.Booking.SlotStep,
		MaxWindow: cfg.Booking.MaxWindow,
	}, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, metrics, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	bookingSvc := service.NewBookingService(sessionRepo, mentors, slotSvc, notificationSvc, auditRepo, metrics, validate, logr)
	exportSvc := service.NewExportService(sessionRepo, mentors, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	slotHandler := handler.NewSlotHandler(slotSvc)
	sessionHandler := handler.NewSessionHandler(bookingSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	probes := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		probes["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	metricsHandler := handler.NewMetricsHandler(metrics, probes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	api.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), metricsHandler.Summary)

	mentorsGroup := api.Group("/mentors/:id")
	mentorsGroup.GET("/slots", slotHandler.List)
	mentorsGroup.GET("/sessions/export", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), "SELF"), exportHandler.MentorAgenda)

	availability := mentorsGroup.Group("/availability")
	availability.GET("/rules", availabilityHandler.ListRules)
	availability.POST("/rules", middleware.Audit(auditRepo, logr, models.AuditActionRuleCreate, "availability_rule", "ruleId"), availabilityHandler.CreateRule)
	availability.PUT("/rules/:ruleId", middleware.Audit(auditRepo, logr, models.AuditActionRuleUpdate, "availability_rule", "ruleId"), availabilityHandler.UpdateRule)
	availability.DELETE("/rules/:ruleId", middleware.Audit(auditRepo, logr, models.AuditActionRuleDelete, "availability_rule", "ruleId"), availabilityHandler.DeleteRule)
	availability.GET("/exceptions", availabilityHandler.ListExceptions)
	availability.POST("/exceptions", middleware.Audit(auditRepo, logr, models.AuditActionExceptionCreate, "availability_exception", "exceptionId"), availabilityHandler.CreateException)
	availability.PUT("/exceptions/:exceptionId", middleware.Audit(auditRepo, logr, models.AuditActionExceptionUpdate, "availability_exception", "exceptionId"), availabilityHandler.UpdateException)
	availability.DELETE("/exceptions/:exceptionId", middleware.Audit(auditRepo, logr, models.AuditActionExceptionDelete, "availability_exception", "exceptionId"), availabilityHandler.DeleteException)
	availability.GET("/legacy", availabilityHandler.ListLegacy)
	availability.POST("/legacy", middleware.Audit(auditRepo, logr, models.AuditActionLegacyCreate, "legacy_availability", "legacyId"), availabilityHandler.CreateLegacy)
	availability.DELETE("/legacy/:legacyId", middleware.Audit(auditRepo, logr, models.AuditActionLegacyDelete, "legacy_availability", "legacyId"), availabilityHandler.DeleteLegacy)

	sessions := api.Group("/sessions")
	sessions.POST("", middleware.RateLimit(cfg.Booking.RateLimitPerMin, cfg.Booking.RateLimitBurst, logr), sessionHandler.Create)
	sessions.GET("", sessionHandler.List)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.PATCH("/:id", sessionHandler.Update)
	sessions.POST("/:id/confirm", sessionHandler.Confirm)
	sessions.POST("/:id/complete", sessionHandler.Complete)
	sessions.POST("/:id/cancel", sessionHandler.Cancel)

	return &application{router: r, notifications: notificationSvc}
}
