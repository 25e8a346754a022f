package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// quietPaths are polled constantly by the UI shell and scrapers.
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// ZapLogger tags each request with an id (kept from the caller when
// present) and logs one line when it completes. The long-lived /sse stream
// is logged when it closes.
func ZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}

		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			logger.Error("request failed", append(fields, zap.String("errors", errs.String()))...)
			return
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status == http.StatusTooManyRequests:
			logger.Info("request throttled", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			if _, quiet := quietPaths[c.Request.URL.Path]; quiet {
				logger.Debug("request completed", fields...)
				return
			}
			logger.Info("request completed", fields...)
		}
	}
}
