package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/handler"
	"github.com/noah-isme/study-hall-api/internal/middleware"
	"github.com/noah-isme/study-hall-api/internal/models"
	"github.com/noah-isme/study-hall-api/pkg/config"
	"github.com/noah-isme/study-hall-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-hall-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-hall-api/pkg/middleware/requestid"
)

type handlers struct {
	auth      *handler.AuthHandler
	students  *handler.StudentHandler
	halls     *handler.StudyHallHandler
	fees      *handler.FeeHandler
	reports   *handler.ReportHandler
	dashboard *handler.DashboardHandler
	metrics   *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h handlers, tokens middleware.TokenValidator, observer middleware.RequestObserver) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(observer))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Auth.Enabled {
		r.POST("/auth/login", h.auth.Login)
		api.Use(middleware.JWT(tokens), middleware.RequireRoles(models.RoleOperator))
	}

	students := api.Group("/students")
	students.GET("", h.students.List)
	students.POST("", h.students.Create)
	students.GET("/:id", h.students.Get)
	students.PUT("/:id", h.students.Update)
	students.DELETE("/:id", h.students.Delete)
	students.POST("/:id/leave", h.students.Leave)
	students.POST("/:id/reactivate", h.students.Reactivate)
	students.POST("/:id/payments", h.students.RecordPayment)

	halls := api.Group("/study-halls")
	halls.GET("", h.halls.List)
	halls.POST("", h.halls.Create)
	halls.GET("/:id", h.halls.Get)
	halls.PUT("/:id", h.halls.Update)
	halls.DELETE("/:id", h.halls.Delete)

	fees := api.Group("/fees")
	fees.POST("/accrual", h.fees.RunAccrual)
	fees.GET("/accrual/last-run", h.fees.LastRun)
	fees.GET("/upcoming", h.fees.Upcoming)

	reports := api.Group("/reports")
	reports.GET("/fee-collection", h.reports.FeeCollection)
	reports.GET("/fee-collection/export", h.reports.ExportFeeCollection)

	api.GET("/dashboard", h.dashboard.Summary)

	if cfg.StaticDir != "" {
		static := http.FileServer(http.Dir(cfg.StaticDir))
		prefix := strings.TrimRight(cfg.APIPrefix, "/") + "/"
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
				return
			}
			static.ServeHTTP(c.Writer, c.Request)
		})
	}

	return r
}
