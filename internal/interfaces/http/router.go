// Package http wires the gin route tree and the HTTP server of the pattern
// engine.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/patentdesk/extraction-engine/internal/config"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/patentdesk/extraction-engine/internal/interfaces/http/handlers"
	"github.com/patentdesk/extraction-engine/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	PatternHandler *handlers.PatternHandler
	HealthHandler  *handlers.HealthHandler

	CORS *middleware.CORSConfig

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector

	// Mode is the gin mode ("debug", "release", "test"); empty means
	// release.
	Mode string
}

// NewRouter constructs the complete route tree: global middleware, public
// probe and metrics endpoints, and the /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recovery(cfg.Logger))

	corsCfg := middleware.DefaultCORSConfig()
	if cfg.CORS != nil {
		corsCfg = *cfg.CORS
	}
	r.Use(middleware.CORS(corsCfg))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	if cfg.PatternHandler != nil {
		api := r.Group("/api/v1")
		registerPatternRoutes(api, cfg.PatternHandler)
	}

	return r
}

// registerPatternRoutes mounts the engine endpoints under /api/v1.
func registerPatternRoutes(api *gin.RouterGroup, h *handlers.PatternHandler) {
	api.POST("/corrections", h.RecordCorrection)
	api.GET("/opportunities", h.ListOpportunities)

	api.POST("/patterns", h.Deploy)
	api.POST("/extract", h.Extract)

	fields := api.Group("/fields/:field")
	fields.POST("/synthesize", h.Synthesize)
	fields.POST("/rollback", h.Rollback)
	fields.GET("/patterns", h.History)
}

// ServerModeFromConfig maps the service config mode onto a gin mode.
func ServerModeFromConfig(cfg config.ServerConfig) string {
	switch cfg.Mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
