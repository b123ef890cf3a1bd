package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// JobHandler processes one analysis job. A returned error with a permanent
// code (validation, empty document) commits the message anyway; any other
// error leaves the offset uncommitted so the job is redelivered.
type JobHandler func(ctx context.Context, job AnalysisJob) error

// JobConsumer drains the analysis job topic.
type JobConsumer struct {
	reader  ReaderInterface
	handler JobHandler
	logger  logging.Logger
}

// NewJobConsumer joins the configured consumer group.
func NewJobConsumer(cfg config.KafkaConfig, handler JobHandler, logger logging.Logger) (*JobConsumer, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "no kafka brokers configured")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "consumer requires a group_id")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10 * 1024 * 1024,
	})
	return &JobConsumer{reader: reader, handler: handler, logger: logger}, nil
}

// newJobConsumerWithReader wires a custom reader, for tests.
func newJobConsumerWithReader(reader ReaderInterface, handler JobHandler, logger logging.Logger) *JobConsumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &JobConsumer{reader: reader, handler: handler, logger: logger}
}

// Run fetches and processes jobs until the context is cancelled.
func (c *JobConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to fetch job")
		}

		job, err := decodeJob(msg.Value)
		if err != nil {
			// A malformed message never becomes valid; skip it.
			c.logger.Error("dropping undecodable job",
				logging.Int64("offset", msg.Offset), logging.Err(err))
			c.commit(ctx, msg)
			continue
		}

		if err := c.handler(ctx, job); err != nil {
			if permanent(err) {
				c.logger.Error("job failed permanently",
					logging.String("job_id", job.JobID),
					logging.String("document_id", job.DocumentID),
					logging.Err(err))
				c.commit(ctx, msg)
				continue
			}
			c.logger.Warn("job failed, leaving for redelivery",
				logging.String("job_id", job.JobID), logging.Err(err))
			continue
		}

		c.commit(ctx, msg)
	}
}

// Close leaves the consumer group.
func (c *JobConsumer) Close() error {
	return c.reader.Close()
}

func (c *JobConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit offset",
			logging.Int64("offset", msg.Offset), logging.Err(err))
	}
}

// permanent reports whether retrying the job can never succeed.
func permanent(err error) bool {
	return errors.IsCode(err, errors.ErrCodeValidation) ||
		errors.IsCode(err, errors.ErrCodeEmptyDocument) ||
		errors.IsCode(err, errors.ErrCodeJobDecodeFailed)
}
