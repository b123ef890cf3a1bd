package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// ErrCacheMiss is returned when no result is cached for a document.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// ResultCache stores finished aggregation results keyed by the content hash
// of the analyzed document, so re-submissions of identical text skip the
// pipeline entirely.
type ResultCache interface {
	Get(ctx context.Context, text string) (*damages.AggregationResult, error)
	Set(ctx context.Context, text string, result *damages.AggregationResult) error
	Invalidate(ctx context.Context, text string) error
	Ping(ctx context.Context) error
}

type resultCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
}

// CacheOption customizes a ResultCache.
type CacheOption func(*resultCache)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) CacheOption {
	return func(c *resultCache) { c.prefix = prefix }
}

// WithDefaultTTL overrides the entry lifetime.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *resultCache) { c.defaultTTL = ttl }
}

// NewResultCache builds the cache on an existing client.
func NewResultCache(client *Client, logger logging.Logger, opts ...CacheOption) ResultCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &resultCache{
		client:     client,
		logger:     logger,
		prefix:     "claimsift:result:",
		defaultTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DocumentHash returns the cache key component for a document text.
func DocumentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *resultCache) key(text string) string {
	return c.prefix + DocumentHash(text)
}

func (c *resultCache) Get(ctx context.Context, text string) (*damages.AggregationResult, error) {
	data, err := c.client.rdb.Get(ctx, c.key(text)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "result cache get failed")
	}
	var result damages.AggregationResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss; the fresh result overwrites it.
		c.logger.Warn("corrupt cache entry dropped", logging.Err(err))
		return nil, ErrCacheMiss
	}
	return &result, nil
}

func (c *resultCache) Set(ctx context.Context, text string, result *damages.AggregationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "result cache encode failed")
	}
	if err := c.client.rdb.Set(ctx, c.key(text), data, c.defaultTTL).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "result cache set failed")
	}
	return nil
}

func (c *resultCache) Invalidate(ctx context.Context, text string) error {
	return c.client.rdb.Del(ctx, c.key(text)).Err()
}

func (c *resultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
