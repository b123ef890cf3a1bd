package minio

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// ErrDocumentNotFound is returned when the referenced object does not exist.
var ErrDocumentNotFound = errors.New(errors.ErrCodeNotFound, "document not found")

// DocumentStore reads and writes source documents in object storage.
type DocumentStore interface {
	// FetchText downloads a document. An empty bucket means the default
	// bucket.
	FetchText(ctx context.Context, bucket, key string) (string, error)
	// StoreText uploads a document into the default bucket.
	StoreText(ctx context.Context, key, text string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// PresignedGetURL returns a time-limited download link.
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

type documentStore struct {
	client *Client
	logger logging.Logger
}

// NewDocumentStore builds the store on a connected client.
func NewDocumentStore(client *Client, logger logging.Logger) DocumentStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &documentStore{client: client, logger: logger}
}

func (s *documentStore) resolveBucket(bucket string) string {
	if bucket == "" {
		return s.client.bucket
	}
	return bucket
}

func (s *documentStore) FetchText(ctx context.Context, bucket, key string) (string, error) {
	obj, err := s.client.mc.GetObject(ctx, s.resolveBucket(bucket), key, minio.GetObjectOptions{})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to open object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrDocumentNotFound
		}
		return "", errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to read object")
	}

	s.logger.Debug("document fetched",
		logging.String("key", key), logging.Int("bytes", len(data)))
	return string(data), nil
}

func (s *documentStore) StoreText(ctx context.Context, key, text string) error {
	reader := strings.NewReader(text)
	_, err := s.client.mc.PutObject(ctx, s.client.bucket, key, reader, int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to store document")
	}
	return nil
}

func (s *documentStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.mc.StatObject(ctx, s.resolveBucket(bucket), key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to stat object")
	}
	return true, nil
}

func (s *documentStore) Delete(ctx context.Context, key string) error {
	if err := s.client.mc.RemoveObject(ctx, s.client.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to delete object")
	}
	return nil
}

func (s *documentStore) PresignedGetURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.mc.PresignedGetObject(ctx, s.client.bucket, key, s.client.presignExpiry, url.Values{})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to presign url")
	}
	return u.String(), nil
}
