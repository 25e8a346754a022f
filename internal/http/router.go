package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/http/controller"
	"notifyd/internal/http/middleware"
	"notifyd/internal/metrics"
)

func NewRouter(cfg *config.Config, handler *controller.Handler, limiter *middleware.RateLimiter, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		otelgin.Middleware(cfg.OTELServiceName),
		middleware.ZapLogger(logger),
		middleware.ZapRecovery(logger),
	)

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.GET("/notifications", handler.GetNotifications)
	router.GET("/notifications/history", handler.History)
	router.GET("/sse", handler.SSE)
	router.GET("/session", handler.GetSession)

	mutating := router.Group("/", limiter.Limit())
	mutating.POST("/notifications/refresh", handler.Refresh)
	mutating.POST("/notifications/:id/read", handler.MarkRead)
	mutating.PUT("/session", handler.PutSession)
	mutating.DELETE("/session", handler.DeleteSession)

	return router
}
