package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notifyd/internal/http/dto"
	"notifyd/internal/http/resp"
)

// ZapRecovery turns a handler panic into a 500 with the usual error body.
func ZapRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("error", recovered),
			zap.String("request_id", c.Writer.Header().Get(RequestIDHeader)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Stack("stack"),
		)
		if c.Writer.Written() {
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    resp.CodeInternalError,
			Message: "internal error",
		})
	})
}
