// Package redis provides the analysis result cache and the batch-dedup lock.
// Batch reruns over a case corpus hit the same documents over and over; the
// cache keyed by document content hash makes reanalysis free, and the lock
// keeps two workers from analyzing the same document concurrently.
package redis

import (
	"context"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// ErrConnectionFailed is returned when the initial ping fails.
var ErrConnectionFailed = errors.New(errors.ErrCodeDatabaseError, "redis connection failed")

// Client wraps a go-redis client with the application's defaults.
type Client struct {
	rdb    *redis.Client
	logger logging.Logger
}

// NewClient connects and pings. The caller owns Close.
func NewClient(cfg config.RedisConfig, logger logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10 * runtime.GOMAXPROCS(0)
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, ErrConnectionFailed.WithCause(err)
	}

	logger.Info("redis connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return &Client{rdb: rdb, logger: logger}, nil
}

// Ping checks liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for packages in this module that need
// commands the wrapper does not carry.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
