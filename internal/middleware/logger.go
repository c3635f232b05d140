package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/monitor"
	"marketplace/pkg/log"
)

// Logger request logging middleware
func Logger() gin.HandlerFunc {
	return LoggerWithMetrics(nil)
}

// LoggerWithMetrics request logging middleware that also feeds the HTTP
// metrics when a collector is present
func LoggerWithMetrics(metrics *monitor.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method

		if metrics != nil {
			// Use the route template so path params don't blow up the
			// label cardinality.
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(method, route, strconv.Itoa(statusCode))
			metrics.RecordHTTPDuration(method, route, latency)
		}

		if raw != "" {
			path = path + "?" + raw
		}

		fields := map[string]interface{}{
			"status":  statusCode,
			"method":  method,
			"path":    path,
			"ip":      c.ClientIP(),
			"latency": latency,
		}

		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		if statusCode >= 500 {
			log.WithFields(fields).Error("Server error")
		} else if statusCode >= 400 {
			log.WithFields(fields).Warn("Client error")
		} else {
			log.WithFields(fields).Info("Request completed")
		}
	}
}
