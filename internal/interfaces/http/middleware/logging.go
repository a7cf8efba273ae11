package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/prometheus"
)

// RequestLogger logs every completed request and, when metrics is non-nil,
// observes it on the HTTP metric families.  The metric path label uses the
// route template (e.g. /api/v1/fields/:field/rollback), not the raw URL, to
// keep label cardinality bounded.
func RequestLogger(logger logging.Logger, metrics *prometheus.AppMetrics) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if metrics != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(c.Request.Method, route, status, latency)
		}

		fields := []logging.Field{
			logging.Int("status", status),
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Duration("latency", latency),
			logging.String("client_ip", c.ClientIP()),
			logging.String("request_id", GetRequestID(c)),
		}
		if query != "" {
			fields = append(fields, logging.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("request completed", fields...)
		case status >= 400:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
