package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-booking-api/api/swagger"
	"github.com/noah-isme/sma-booking-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-booking-api/internal/middleware"
	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/internal/repository"
	"github.com/noah-isme/sma-booking-api/internal/service"
	"github.com/noah-isme/sma-booking-api/pkg/cache"
	"github.com/noah-isme/sma-booking-api/pkg/config"
	"github.com/noah-isme/sma-booking-api/pkg/database"
	"github.com/noah-isme/sma-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-booking-api/pkg/middleware/cors"
	"github.com/noah-isme/sma-booking-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/sma-booking-api/pkg/middleware/requestid"
)

// @title SMA Booking API
// @version 1.0.0
// @description Student and teacher appointment booking with messaging
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(database.URL(cfg.Database)); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
		logr.Info("migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	userRepo := repository.NewUserRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TeacherTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	auditSvc := service.NewAuditService(auditRepo, cfg.Audit, metricsSvc, logr)
	auditSvc.Start(ctx)

	authSvc := service.NewAuthService(userRepo, auditSvc, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, cacheSvc, auditSvc, nil, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, userRepo, metricsSvc, auditSvc, nil, logr)
	messageSvc := service.NewMessageService(messageRepo, appointmentRepo, userRepo, metricsSvc, nil, logr)

	if err := authSvc.EnsureBootstrapAdmin(ctx, cfg.Bootstrap); err != nil {
		logr.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"redis":    cacheRepo.Ping,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.RequestMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var authLimit, sendLimit gin.HandlerFunc = passThrough, passThrough
	if cfg.RateLimit.Enabled {
		authLimiter := ratelimit.New(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst, cfg.RateLimit.CleanupInterval)
		defer authLimiter.Stop()
		sendLimiter := ratelimit.New(cfg.RateLimit.SendPerMinute, cfg.RateLimit.SendBurst, cfg.RateLimit.CleanupInterval)
		defer sendLimiter.Stop()
		authLimit = authLimiter.Middleware(ratelimit.ClientIP)
		sendLimit = sendLimiter.Middleware(userOrIP)
	}

	requireAuth := internalmiddleware.JWT(authSvc)
	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authLimit, authHandler.Register)
	auth.POST("/register-admin", authLimit, internalmiddleware.OptionalJWT(authSvc), authHandler.RegisterAdmin)
	auth.POST("/login", authLimit, authHandler.Login)
	auth.POST("/refresh", authLimit, authHandler.Refresh)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)

	secured := api.Group("")
	secured.Use(requireAuth)
	secured.GET("/teachers", userHandler.ListTeachers)
	secured.GET("/teachers/:id/appointments", appointmentHandler.ListForTeacher)
	secured.GET("/students/:id/appointments", appointmentHandler.ListForStudent)
	secured.POST("/appointments", internalmiddleware.RequireRoles(models.RoleStudent), appointmentHandler.Book)
	secured.PUT("/appointments/:id/status", internalmiddleware.RequireRoles(models.RoleTeacher), appointmentHandler.UpdateStatus)
	secured.POST("/messages", sendLimit, messageHandler.Send)
	secured.GET("/messages/thread/:appointmentId", messageHandler.AppointmentThread)
	secured.GET("/messages/thread/users/:u1/:u2", messageHandler.PairThread)
	secured.GET("/users/:id/messages", messageHandler.Inbox)
	secured.GET("/users/:id/conversations", messageHandler.Conversations)

	admin := secured.Group("/admin")
	admin.Use(adminOnly)
	admin.GET("/students/pending", userHandler.ListPendingStudents)
	admin.PUT("/students/:id/approve", userHandler.ApproveStudent)
	admin.POST("/teachers", userHandler.AddTeacher)
	admin.PUT("/teachers/:id", userHandler.UpdateTeacher)
	admin.DELETE("/teachers/:id", userHandler.DeleteTeacher)
	admin.GET("/appointments", appointmentHandler.ListAll)
	admin.GET("/appointments/export", appointmentHandler.Export)
	admin.DELETE("/appointments/:id", appointmentHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	auditSvc.Stop()
	logr.Info("audit queue drained", zap.Uint64("processed", auditSvc.Stats().Processed))
}

func passThrough(c *gin.Context) {
	c.Next()
}

// userOrIP keys the send limiter on the authenticated user when present.
func userOrIP(c *gin.Context) string {
	if claims := internalmiddleware.CurrentUser(c); claims != nil && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return ratelimit.ClientIP(c)
}
