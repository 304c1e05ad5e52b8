package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/academic-risk-api/api/swagger"
	"github.com/noah-isme/academic-risk-api/internal/handler"
	"github.com/noah-isme/academic-risk-api/internal/middleware"
	"github.com/noah-isme/academic-risk-api/internal/models"
	"github.com/noah-isme/academic-risk-api/internal/repository"
	"github.com/noah-isme/academic-risk-api/internal/service"
	"github.com/noah-isme/academic-risk-api/pkg/cache"
	"github.com/noah-isme/academic-risk-api/pkg/config"
	"github.com/noah-isme/academic-risk-api/pkg/database"
	"github.com/noah-isme/academic-risk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-risk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-risk-api/pkg/middleware/requestid"
)

// @title Academic Risk API
// @version 0.1.0
// @description Warning lifecycle and risk aggregation service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Statistics.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, statistics caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheSvcRepo service.CacheRepository
	if cacheRepo != nil {
		cacheSvcRepo = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheSvcRepo, metricsSvc, cfg.Statistics.CacheTTL, logr, cacheRepo != nil)

	warningRepo := repository.NewWarningRepository(db)
	ruleRepo := repository.NewWarningRuleRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	warningSvc := service.NewWarningService(warningRepo, ruleRepo, studentRepo, cacheSvc, nil, logr)
	querySvc := service.NewWarningQueryService(warningRepo, ruleRepo, studentRepo, cfg.Export.MaxRows, logr)
	statsSvc := service.NewStatisticsService(warningRepo, studentRepo, courseRepo, cacheSvc, cfg.Statistics.CacheTTL, cfg.Statistics.TrendMonths, logr)

	warningHandler := handler.NewWarningHandler(warningSvc, querySvc)
	statsHandler := handler.NewStatisticsHandler(statsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	warnings := api.Group("/warnings")
	{
		warnings.GET("", warningHandler.List)
		warnings.GET("/types", warningHandler.Types)
		warnings.GET("/recent", warningHandler.Recent)
		if cfg.Export.Enabled {
			warnings.GET("/export", warningHandler.Export)
		}
		warnings.GET("/student/:studentId", warningHandler.ByStudent)
		warnings.GET("/:id", warningHandler.Get)
		warnings.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), warningHandler.Create)
		warnings.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), warningHandler.Update)
		warnings.POST("/:id/resolve", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), warningHandler.Resolve)
		warnings.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), warningHandler.Delete)
	}

	statistics := api.Group("/statistics")
	{
		statistics.GET("/dashboard", statsHandler.Dashboard)
		statistics.GET("/warnings/distribution", statsHandler.Distribution)
		statistics.GET("/warnings/trends", statsHandler.Trends)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
