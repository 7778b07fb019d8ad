package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-space-scheduler/internal/handler"
	"github.com/noah-isme/sma-space-scheduler/internal/middleware"
	"github.com/noah-isme/sma-space-scheduler/internal/models"
	"github.com/noah-isme/sma-space-scheduler/internal/service"
	"github.com/noah-isme/sma-space-scheduler/pkg/config"
	"github.com/noah-isme/sma-space-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-space-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-space-scheduler/pkg/middleware/requestid"
)

type routeDeps struct {
	tokens          *service.TokenService
	metrics         *service.MetricsService
	reservations    *handler.ReservationHandler
	recommendations *handler.RecommendationHandler
	timetables      *handler.TimetableHandler
	exports         *handler.ExportHandler
	ops             *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// Signed tokens carry their own authorisation.
	api.GET("/exports/:token", deps.exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))
	writers := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(logr, action) }

	secured.GET("/metrics/summary", writers, deps.ops.Summary)

	reservations := secured.Group("/reservations")
	reservations.POST("/conflicts", deps.reservations.CheckConflicts)
	reservations.POST("", writers, audit("reservation.create"), deps.reservations.Create)
	reservations.PATCH("/:id/status", writers, audit("reservation.status"), deps.reservations.UpdateStatus)

	spaces := secured.Group("/spaces")
	spaces.GET("/free-days", deps.reservations.FreeDays)
	spaces.GET("/:id/free-slots", deps.reservations.FreeSlots)
	spaces.POST("/recommendations", deps.recommendations.Recommend)

	timetables := secured.Group("/timetables")
	timetables.POST("/sessions/generate", deps.timetables.GenerateSessions)
	timetables.POST("/validate", deps.timetables.Validate)
	timetables.POST("", writers, audit("timetable.create"), deps.timetables.Create)
	timetables.GET("/publications/:jobId", deps.timetables.PublicationStatus)
	timetables.GET("/:id", deps.timetables.Get)
	timetables.POST("/:id/publish", writers, audit("timetable.publish"), deps.timetables.Publish)
	timetables.POST("/:id/export", deps.timetables.Export)

	return r
}
