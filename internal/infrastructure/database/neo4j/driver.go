// Package neo4j wraps the statute graph: which Civil Code articles ground a
// damage category. The drafting layer cites these articles next to the
// aggregated amounts.
package neo4j

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Result abstracts neo4j.ResultWithContext for repository tests.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
	Consume(ctx context.Context) (neo4j.ResultSummary, error)
}

// Transaction abstracts neo4j.ManagedTransaction.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// TransactionWork is a unit of work executed inside a managed transaction.
type TransactionWork func(tx Transaction) (any, error)

// DriverInterface is what repositories depend on.
type DriverInterface interface {
	ExecuteRead(ctx context.Context, work TransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work TransactionWork) (any, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

type stdResult struct {
	res neo4j.ResultWithContext
}

func (r *stdResult) Next(ctx context.Context) bool { return r.res.Next(ctx) }
func (r *stdResult) Record() *neo4j.Record         { return r.res.Record() }
func (r *stdResult) Err() error                    { return r.res.Err() }
func (r *stdResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return r.res.Consume(ctx)
}

type stdTransaction struct {
	tx neo4j.ManagedTransaction
}

func (t *stdTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &stdResult{res: res}, nil
}

// Driver is the connection wrapper used by repositories.
type Driver struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logging.Logger
	once     sync.Once
}

// NewDriver connects and verifies connectivity.
func NewDriver(cfg config.Neo4jConfig, logger logging.Logger) (*Driver, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			} else {
				c.MaxConnectionPoolSize = 50
			}
			if cfg.ConnectionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
			} else {
				c.ConnectionAcquisitionTimeout = 60 * time.Second
			}
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphUnavailable, "failed to create neo4j driver")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.Wrap(err, errors.ErrCodeGraphUnavailable, "failed to connect to neo4j")
	}

	logger.Info("neo4j connected",
		logging.String("uri", cfg.URI), logging.String("database", cfg.Database))

	return &Driver{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (d *Driver) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	name := d.database
	if name == "" {
		name = "neo4j"
	}
	return d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: name, AccessMode: mode})
}

// ExecuteRead runs work in a managed read transaction.
func (d *Driver) ExecuteRead(ctx context.Context, work TransactionWork) (any, error) {
	session := d.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "neo4j read failed")
	}
	return result, nil
}

// ExecuteWrite runs work in a managed write transaction.
func (d *Driver) ExecuteWrite(ctx context.Context, work TransactionWork) (any, error) {
	session := d.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphQueryFailed, "neo4j write failed")
	}
	return result, nil
}

// HealthCheck verifies connectivity.
func (d *Driver) HealthCheck(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphUnavailable, "neo4j connectivity check failed")
	}
	return nil
}

// Close shuts the driver down. Safe to call more than once.
func (d *Driver) Close() error {
	var err error
	d.once.Do(func() {
		err = d.driver.Close(context.Background())
		if err != nil {
			d.logger.Error("failed to close neo4j driver", logging.Err(err))
		}
	})
	return err
}

// CollectRecords drains a result through a per-record mapper.
func CollectRecords[T any](ctx context.Context, result Result, mapper func(*neo4j.Record) (T, error)) ([]T, error) {
	var items []T
	for result.Next(ctx) {
		item, err := mapper(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
