package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// JobProducer enqueues analysis jobs.
type JobProducer interface {
	Enqueue(ctx context.Context, job *AnalysisJob) error
	Close() error
}

type jobProducer struct {
	writer WriterInterface
	logger logging.Logger
}

// NewJobProducer builds a producer on the configured brokers. Messages are
// keyed by document ID so repeat submissions of one document stay ordered on
// one partition.
func NewJobProducer(cfg config.KafkaConfig, logger logging.Logger) (JobProducer, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "no kafka brokers configured")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	maxAttempts := cfg.ProducerRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  maxAttempts,
		BatchSize:    batchSize,
		RequiredAcks: kafka.RequireAll,
	}
	return &jobProducer{writer: writer, logger: logger}, nil
}

// newJobProducerWithWriter wires a custom writer, for tests.
func newJobProducerWithWriter(writer WriterInterface, logger logging.Logger) JobProducer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &jobProducer{writer: writer, logger: logger}
}

func (p *jobProducer) Enqueue(ctx context.Context, job *AnalysisJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := encodeJob(job)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(job.DocumentID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeJobPublishFailed, "failed to publish analysis job")
	}

	p.logger.Debug("analysis job enqueued",
		logging.String("job_id", job.JobID),
		logging.String("document_id", job.DocumentID))
	return nil
}

func (p *jobProducer) Close() error {
	return p.writer.Close()
}
