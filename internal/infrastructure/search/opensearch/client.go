// Package opensearch retrieves precedent paragraphs similar to a finished
// analysis. Retrieved precedents ground the drafting prompt in real awarded
// amounts instead of letting the model invent comparables.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// ErrConnectionFailed is returned when the initial ping fails.
var ErrConnectionFailed = errors.New(errors.ErrCodeSearchUnavailable, "opensearch connection failed")

// Client wraps the OpenSearch API client with the application's defaults.
type Client struct {
	api    *opensearchapi.Client
	logger logging.Logger
}

// NewClient connects and pings the cluster.
func NewClient(cfg config.OpenSearchConfig, logger logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.Addresses) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "no opensearch addresses configured")
	}

	transport := &http.Transport{MaxIdleConnsPerHost: 10}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:     cfg.Addresses,
			Username:      cfg.User,
			Password:      cfg.Password,
			Transport:     transport,
			MaxRetries:    3,
			RetryOnStatus: []int{429, 502, 503, 504},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchUnavailable, "failed to create opensearch client")
	}

	c := &Client{api: api, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return nil, ErrConnectionFailed.WithCause(err)
	}

	logger.Info("opensearch connected", logging.Any("addresses", cfg.Addresses))
	return c, nil
}

// newClientUnchecked builds a client without the startup ping, for tests.
func newClientUnchecked(api *opensearchapi.Client, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Ping checks cluster liveness.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.api.Ping(ctx, nil)
	if err != nil {
		return err
	}
	if resp != nil && resp.IsError() {
		return errors.Newf(errors.ErrCodeSearchUnavailable, "ping returned status %d", resp.StatusCode)
	}
	return nil
}

// API exposes the underlying client for packages in this module.
func (c *Client) API() *opensearchapi.Client {
	return c.api
}
