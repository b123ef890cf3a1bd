// Package app wires configuration into running infrastructure. It is shared
// by the API server, the batch worker and the CLI so that every entry point
// builds the same dependency graph.
package app

import (
	"context"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/engine"
	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/generation"
	neo4jdriver "github.com/caselens/claimsift/internal/infrastructure/database/neo4j"
	graphrepo "github.com/caselens/claimsift/internal/infrastructure/database/neo4j/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/database/postgres"
	pgrepo "github.com/caselens/claimsift/internal/infrastructure/database/postgres/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/database/redis"
	"github.com/caselens/claimsift/internal/infrastructure/messaging/kafka"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/prometheus"
	"github.com/caselens/claimsift/internal/infrastructure/search/opensearch"
	"github.com/caselens/claimsift/internal/infrastructure/storage/minio"
)

// Options selects which dependency groups an entry point needs. The engine
// and metrics are always built; everything else is opt-in so the CLI does
// not open sockets it never uses.
type Options struct {
	Postgres   bool
	Redis      bool
	Kafka      bool
	OpenSearch bool
	Neo4j      bool
	Drafting   bool
	MinIO      bool
}

// ServerOptions enables everything the API server serves.
func ServerOptions() Options {
	return Options{Postgres: true, Redis: true, Kafka: true, OpenSearch: true, Neo4j: true, Drafting: true}
}

// WorkerOptions enables the batch worker's dependency set.
func WorkerOptions() Options {
	return Options{Postgres: true, Redis: true, MinIO: true}
}

// App holds the assembled dependency graph. Optional components are nil when
// disabled by Options or left unconfigured.
type App struct {
	Config *config.Config
	Logger logging.Logger

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Engine engine.Engine
	Rules  *rules.Rules

	Pool     *postgres.Pool
	Analyses pgrepo.AnalysisRepository

	RedisClient *redis.Client
	Cache       redis.ResultCache
	Locks       redis.JobLock

	Producer kafka.JobProducer

	Search   *opensearch.Client
	Searcher opensearch.Searcher

	Graph    *neo4jdriver.Driver
	Statutes graphrepo.StatuteRepository

	Drafter  generation.Drafter
	Embedder opensearch.Embedder

	ObjectStore *minio.Client
	Documents   minio.DocumentStore

	closers []func() error
}

// New assembles the graph. Components fail fast: an unreachable dependency
// that the options ask for aborts startup rather than limping along.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &App{Config: cfg, Logger: logger}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "claimsift",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.Collector = collector
	a.Metrics = prometheus.NewAppMetrics(collector)

	a.Rules = rules.Default()
	if cfg.Engine.RulesPath != "" {
		a.Rules, err = rules.Load(cfg.Engine.RulesPath)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded keyword rules", logging.String("path", cfg.Engine.RulesPath))
	}
	a.Engine = engine.New(engine.Config{
		MinAmount:        cfg.Engine.MinAmount,
		ContextWindow:    cfg.Engine.ContextWindow,
		BasisWindow:      cfg.Engine.BasisWindow,
		MaxDocumentBytes: cfg.Engine.MaxDocumentBytes,
		BatchConcurrency: cfg.Engine.BatchConcurrency,
	}, a.Rules, prometheus.NewEngineMetrics(a.Metrics), logger)

	if opts.Postgres {
		if err := postgres.Migrate(cfg.Database, logger); err != nil {
			return nil, a.closeAfter(err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.Pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Analyses = pgrepo.NewAnalysisRepository(pool, logger)
	}

	if opts.Redis {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.RedisClient = client
		a.closers = append(a.closers, client.Close)
		a.Cache = redis.NewResultCache(client, logger)
		a.Locks = redis.NewJobLock(client)
	}

	if opts.Kafka {
		producer, err := kafka.NewJobProducer(cfg.Kafka, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.Producer = producer
		a.closers = append(a.closers, producer.Close)
	}

	if opts.Drafting && cfg.Drafting.APIKey != "" {
		drafter, err := generation.NewDrafter(cfg.Drafting, a.Metrics, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.Drafter = drafter

		embedder, err := generation.NewEmbedder(cfg.Drafting)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.Embedder = embedder
	}

	if opts.OpenSearch && len(cfg.OpenSearch.Addresses) > 0 {
		search, err := opensearch.NewClient(cfg.OpenSearch, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.Search = search
		a.Searcher = opensearch.NewSearcher(search, cfg.OpenSearch, a.Embedder, logger)
	}

	if opts.Neo4j && cfg.Neo4j.URI != "" {
		graph, err := neo4jdriver.NewDriver(cfg.Neo4j, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.Graph = graph
		a.closers = append(a.closers, graph.Close)
		a.Statutes = graphrepo.NewStatuteRepository(graph, logger)
	}

	if opts.MinIO && cfg.MinIO.Endpoint != "" {
		store, err := minio.NewClient(cfg.MinIO, logger)
		if err != nil {
			return nil, a.closeAfter(err)
		}
		a.ObjectStore = store
		a.Documents = minio.NewDocumentStore(store, logger)
	}

	return a, nil
}

// Close releases every held connection in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("shutdown cleanup failed", logging.Err(err))
		}
	}
}

// closeAfter tears down what was already built and returns the cause, so
// partial construction never leaks connections.
func (a *App) closeAfter(err error) error {
	a.Close()
	return err
}
