// Package minio stores source documents for batch analysis. The API accepts
// uploads ahead of time; queued jobs reference the stored object instead of
// carrying megabytes of complaint text through the message broker.
package minio

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Client wraps minio-go with the application's defaults.
type Client struct {
	mc            *minio.Client
	bucket        string
	presignExpiry time.Duration
	logger        logging.Logger
}

// NewClient connects and makes sure the configured bucket exists.
func NewClient(cfg config.MinIOConfig, logger logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "no minio endpoint configured")
	}
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeValidation, "no minio bucket configured")
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create minio client")
	}

	c := &Client{
		mc:            mc,
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
		logger:        logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("minio connected",
		logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket))
	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio")
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create bucket")
	}
	c.logger.Info("bucket created", logging.String("bucket", c.bucket))
	return nil
}

// Bucket returns the default bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Ping probes the endpoint by checking the default bucket.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.mc.BucketExists(ctx, c.bucket); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio")
	}
	return nil
}
