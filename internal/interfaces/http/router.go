// Package http wires the gin router and server for the ClaimSift API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/prometheus"
	"github.com/caselens/claimsift/internal/interfaces/http/handlers"
	"github.com/caselens/claimsift/internal/interfaces/http/middleware"
)

// RouterDeps collects everything the routes need. Draft is optional; when
// nil the drafting route is not registered.
type RouterDeps struct {
	Analysis  *handlers.AnalysisHandler
	Draft     *handlers.DraftHandler
	Health    *handlers.HealthHandler
	Metrics   *prometheus.AppMetrics
	Collector prometheus.MetricsCollector
	Logger    logging.Logger
}

// NewRouter builds the gin engine with all middleware and routes.
func NewRouter(cfg config.ServerConfig, deps RouterDeps) *gin.Engine {
	switch cfg.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	if cfg.MaxBodySize > 0 {
		r.MaxMultipartMemory = cfg.MaxBodySize
	}

	if deps.Health != nil {
		r.GET("/healthz", deps.Health.Liveness)
		r.GET("/readyz", deps.Health.Readiness)
	}
	if deps.Collector != nil {
		r.GET("/metrics", gin.WrapH(deps.Collector.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", deps.Analysis.Analyze)
		v1.GET("/analyses", deps.Analysis.List)
		v1.GET("/analyses/:id", deps.Analysis.Get)
		v1.POST("/batch", deps.Analysis.EnqueueBatch)
		if deps.Draft != nil {
			v1.POST("/analyses/:id/draft", deps.Draft.Draft)
		}
	}

	return r
}
