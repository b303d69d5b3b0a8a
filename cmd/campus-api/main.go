package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/smartcampus/campus-booking-api/api/swagger"
	"github.com/smartcampus/campus-booking-api/internal/handler"
	"github.com/smartcampus/campus-booking-api/internal/middleware"
	"github.com/smartcampus/campus-booking-api/internal/models"
	"github.com/smartcampus/campus-booking-api/internal/repository"
	"github.com/smartcampus/campus-booking-api/internal/service"
	"github.com/smartcampus/campus-booking-api/pkg/cache"
	"github.com/smartcampus/campus-booking-api/pkg/config"
	"github.com/smartcampus/campus-booking-api/pkg/database"
	"github.com/smartcampus/campus-booking-api/pkg/export"
	"github.com/smartcampus/campus-booking-api/pkg/jobs"
	"github.com/smartcampus/campus-booking-api/pkg/logger"
	corsmiddleware "github.com/smartcampus/campus-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smartcampus/campus-booking-api/pkg/middleware/requestid"
)

// @title Campus Booking API
// @version 1.0.0
// @description Classroom booking and recurring schedule management
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Redis is optional: the API degrades to uncached reads when it is
	// unreachable.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var notificationSvc *service.NotificationService
	var queue *jobs.Queue
	if cfg.Notifications.Enabled {
		queue = jobs.NewQueue("booking-notifications", func(ctx context.Context, job jobs.Job) error {
			return notificationSvc.HandleJob(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
	}
	sender := service.NewLogSender(logr)
	if queue != nil {
		notificationSvc = service.NewNotificationService(userRepo, classroomRepo, queue, sender, logr)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		queue.Start(ctx)
		defer queue.Stop()
	} else {
		notificationSvc = service.NewNotificationService(userRepo, classroomRepo, nil, sender, logr)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, notificationSvc, validate, logr, metricsSvc)
	scheduleSvc := service.NewScheduleService(scheduleRepo, validate, logr, metricsSvc)
	reportSvc := service.NewReportService(reportRepo, cacheSvc, cfg.Reports.CacheTTL, cfg.Reports.UnderutilizedMinimum, logr)
	exportSvc := service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter())

	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerRoutes(api, cfg, authSvc,
		authHandler, userHandler, classroomHandler, bookingHandler, scheduleHandler, reportHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerRoutes(
	api *gin.RouterGroup,
	cfg *config.Config,
	authSvc *service.AuthService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	classroomHandler *handler.ClassroomHandler,
	bookingHandler *handler.BookingHandler,
	scheduleHandler *handler.ScheduleHandler,
	reportHandler *handler.ReportHandler,
) {
	admin := string(models.RoleAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RBAC(admin), userHandler.List)
		users.POST("", middleware.RBAC(admin), userHandler.Register)
		users.GET("/:id", middleware.RBAC(admin, "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RBAC(admin, "SELF"), userHandler.Update)
		users.DELETE("/:id", middleware.RBAC(admin), userHandler.Deactivate)
	}

	// Reads stay public but pick up claims when a token is sent, so request
	// logs and metrics can attribute discovery traffic.
	classrooms := api.Group("/classrooms", middleware.OptionalJWT(authSvc))
	{
		classrooms.GET("", classroomHandler.List)
		classrooms.GET("/available", classroomHandler.FindAvailable)
		classrooms.GET("/:id", classroomHandler.Get)
		classrooms.GET("/:id/schedules", scheduleHandler.ListByClassroom)
		classrooms.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), classroomHandler.Create)
		classrooms.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), classroomHandler.Update)
		classrooms.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), classroomHandler.Delete)
	}

	bookings := api.Group("/bookings", middleware.JWT(authSvc))
	{
		bookings.GET("", bookingHandler.List)
		bookings.GET("/check-conflict", bookingHandler.CheckConflict)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.POST("", bookingHandler.Create)
		bookings.PUT("/:id", bookingHandler.Update)
		bookings.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin), bookingHandler.Approve)
		bookings.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin), bookingHandler.Reject)
		bookings.POST("/:id/cancel", bookingHandler.Cancel)
	}

	schedules := api.Group("/schedules", middleware.OptionalJWT(authSvc))
	{
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.GET("/check-conflict", middleware.JWT(authSvc), scheduleHandler.CheckConflict)
		schedules.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), scheduleHandler.Create)
		schedules.PUT("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), scheduleHandler.Update)
		schedules.DELETE("/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), scheduleHandler.Delete)
	}

	api.GET("/teachers/:id/schedules", middleware.OptionalJWT(authSvc), scheduleHandler.ListByTeacher)

	if cfg.Reports.Enabled {
		reports := api.Group("/reports", middleware.JWT(authSvc))
		{
			reports.GET("/usage", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), reportHandler.Usage)
			reports.GET("/usage/export", middleware.RequireRoles(models.RoleAdmin), reportHandler.Export)
		}
	}
}
