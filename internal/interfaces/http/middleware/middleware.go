// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/prometheus"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a correlation ID when the client sent none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.String("request_id", c.GetString("request_id")),
			logging.Duration("duration", time.Since(start)),
		)
	}
}

// Recovery converts panics into 500s with a logged stack location.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			logging.String("path", c.Request.URL.Path),
			logging.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(500, gin.H{"code": "COMMON_001", "message": "internal server error"})
	})
}

// Metrics records request counts and latencies.
func Metrics(app *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		app.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
