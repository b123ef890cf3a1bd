// Package postgres provides the connection pool and schema migrations for
// the analysis store. Finished aggregation results are persisted here so the
// API can serve past analyses without rerunning the engine.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Pool manages the PostgreSQL connection pool.
type Pool struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPool connects and verifies the connection. The caller owns Close.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (*Pool, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid database configuration")
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 25
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	} else {
		poolCfg.MaxConnLifetime = 30 * time.Minute
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	} else {
		poolCfg.MaxConnIdleTime = 5 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create connection pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	logger.Info("postgres connected",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName),
	)

	return &Pool{pool: pool, logger: logger}, nil
}

// Raw exposes the underlying pgx pool for repositories.
func (p *Pool) Raw() *pgxpool.Pool {
	return p.pool
}

// Ping checks liveness.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (p *Pool) Close() {
	p.pool.Close()
	p.logger.Info("postgres connection pool closed")
}

// DSN constructs the connection string from configuration.
func DSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()

	return u.String()
}
