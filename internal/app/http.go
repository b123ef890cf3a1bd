package app

import (
	"context"

	"github.com/gin-gonic/gin"

	apihttp "github.com/caselens/claimsift/internal/interfaces/http"
	"github.com/caselens/claimsift/internal/interfaces/http/handlers"
)

// HealthCheckers returns a readiness probe per constructed dependency.
func (a *App) HealthCheckers() []handlers.HealthChecker {
	var checkers []handlers.HealthChecker
	if a.Pool != nil {
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "postgres", Fn: a.Pool.Ping})
	}
	if a.RedisClient != nil {
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "redis", Fn: a.RedisClient.Ping})
	}
	if a.Search != nil {
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "opensearch", Fn: a.Search.Ping})
	}
	if a.Graph != nil {
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "neo4j", Fn: a.Graph.HealthCheck})
	}
	if a.ObjectStore != nil {
		checkers = append(checkers, handlers.CheckerFunc{CheckerName: "minio", Fn: func(ctx context.Context) error {
			return a.ObjectStore.Ping(ctx)
		}})
	}
	return checkers
}

// Router assembles the full API surface from whatever dependencies exist.
func (a *App) Router(version string) *gin.Engine {
	deps := apihttp.RouterDeps{
		Analysis:  handlers.NewAnalysisHandler(a.Engine, a.Cache, a.Analyses, a.Producer, a.Logger),
		Health:    handlers.NewHealthHandler(version, a.HealthCheckers()...),
		Metrics:   a.Metrics,
		Collector: a.Collector,
		Logger:    a.Logger,
	}
	if a.Drafter != nil && a.Analyses != nil {
		deps.Draft = handlers.NewDraftHandler(a.Analyses, a.Searcher, a.Statutes, a.Drafter, a.Logger)
	}
	return apihttp.NewRouter(a.Config.Server, deps)
}

// Server builds the HTTP server around the assembled router.
func (a *App) Server(version string) *apihttp.Server {
	return apihttp.NewServer(a.Config.Server, a.Router(version), a.Logger)
}
