package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fieldserve/dispatch-admin-api/api/swagger"
	"github.com/fieldserve/dispatch-admin-api/internal/handler"
	"github.com/fieldserve/dispatch-admin-api/internal/middleware"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/repository"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
	"github.com/fieldserve/dispatch-admin-api/pkg/cache"
	"github.com/fieldserve/dispatch-admin-api/pkg/config"
	"github.com/fieldserve/dispatch-admin-api/pkg/database"
	"github.com/fieldserve/dispatch-admin-api/pkg/export"
	"github.com/fieldserve/dispatch-admin-api/pkg/logger"
	corsmiddleware "github.com/fieldserve/dispatch-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fieldserve/dispatch-admin-api/pkg/middleware/requestid"
)

// @title Dispatch Admin API
// @version 1.0.0
// @description Back-office API for payout and commission administration
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	technicianRepo := repository.NewTechnicianRepository(db)
	rateRepo := repository.NewRateRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	specializationRepo := repository.NewSpecializationRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Payouts.SummaryCacheTTL, logr, true)
	}

	// Services.
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "dispatch-admin-api",
		Audience:           []string{"dispatch-admin"},
	})
	userSvc := service.NewUserService(userRepo, auditRepo, validate, logr)
	technicianSvc := service.NewTechnicianService(technicianRepo, auditRepo, logr)
	rateSvc := service.NewRateService(rateRepo, auditRepo, validate, logr)
	payoutSvc := service.NewPayoutService(payoutRepo, auditRepo, cacheSvc, export.NewPDFExporter(), validate, logr, service.PayoutServiceConfig{
		PayoutWeekday:      time.Weekday(cfg.Payouts.PayoutWeekday),
		SummaryCacheTTL:    cfg.Payouts.SummaryCacheTTL,
		DefaultApproveNote: cfg.Payouts.DefaultApproveNote,
	})
	auditSvc := service.NewAuditService(auditRepo, export.NewCSVExporter(), logr, service.AuditServiceConfig{
		QueryLimit: cfg.Audit.QueryLimit,
	})
	specializationSvc := service.NewSpecializationService(specializationRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	technicianHandler := handler.NewTechnicianHandler(technicianSvc)
	rateHandler := handler.NewRateHandler(rateSvc)
	payoutHandler := handler.NewPayoutHandler(payoutSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	specializationHandler := handler.NewSpecializationHandler(specializationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	adminRoles := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	v1 := r.Group(cfg.APIPrefix)
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		users := v1.Group("/users", middleware.JWT(authSvc))
		{
			users.GET("", adminRoles, userHandler.List)
			users.GET("/:id", middleware.RBAC("SUPERADMIN", "ADMIN", "SELF"), userHandler.Get)
			users.POST("", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Create)
			users.PUT("/:id", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Update)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Delete)
		}

		technicians := v1.Group("/technicians", middleware.JWT(authSvc), adminRoles)
		{
			technicians.GET("", technicianHandler.List)
			technicians.GET("/:id", technicianHandler.Get)
			technicians.POST("/:id/block", technicianHandler.Block)
			technicians.POST("/:id/unblock", technicianHandler.Unblock)
		}

		rates := v1.Group("/rates", middleware.JWT(authSvc), adminRoles)
		{
			rates.GET("", rateHandler.List)
			rates.GET("/summary", rateHandler.Groups)
			rates.GET("/default/:type", rateHandler.Default)
			rates.GET("/:id", rateHandler.Get)
			rates.POST("", rateHandler.Create)
			rates.PUT("/:id", rateHandler.Update)
			rates.DELETE("/:id", rateHandler.Delete)
			rates.POST("/:id/default", rateHandler.SetDefault)
		}

		payouts := v1.Group("/payouts", middleware.JWT(authSvc), adminRoles)
		{
			payouts.GET("/summary", payoutHandler.Summary)
			payouts.GET("/pending", payoutHandler.ListPending)
			payouts.GET("/history", payoutHandler.History)
			payouts.GET("/batches", payoutHandler.ListBatches)
			payouts.POST("/batches", payoutHandler.CreateBatch)
			payouts.GET("/batches/:id", payoutHandler.BatchDetails)
			payouts.POST("/batches/:id/confirm", payoutHandler.ConfirmBatch)
			payouts.POST("/batches/:id/paid", payoutHandler.MarkPaid)
			payouts.GET("/batches/:id/statement", middleware.Audit(auditRepo, models.AuditActionStatementExported, "payout_batch"), payoutHandler.BatchStatement)
			payouts.GET("/early-requests", payoutHandler.ListEarlyRequests)
			payouts.POST("/early-requests/:id/approve", payoutHandler.ApproveEarlyRequest)
			payouts.POST("/early-requests/:id/reject", payoutHandler.RejectEarlyRequest)
		}

		auditLogs := v1.Group("/audit-logs", middleware.JWT(authSvc), adminRoles)
		{
			auditLogs.GET("", auditHandler.List)
			auditLogs.GET("/export", middleware.Audit(auditRepo, models.AuditActionAuditExported, "audit_log"), auditHandler.ExportCSV)
		}

		specializations := v1.Group("/specializations", middleware.JWT(authSvc), adminRoles)
		{
			specializations.GET("", specializationHandler.List)
			specializations.GET("/:id", specializationHandler.Get)
			specializations.POST("", specializationHandler.Create)
			specializations.PUT("/:id", specializationHandler.Update)
			specializations.DELETE("/:id", specializationHandler.Delete)
		}

		ops := v1.Group("/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSuperAdmin))
		{
			ops.GET("/snapshot", metricsHandler.Snapshot)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
