// Package worker turns queued analysis jobs into stored results. It sits
// between the Kafka consumer and the engine: fetch the document text, take
// the per-document lock, analyze, persist, cache.
package worker

import (
	"context"
	"time"

	"github.com/caselens/claimsift/internal/engine"
	pgrepo "github.com/caselens/claimsift/internal/infrastructure/database/postgres/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/database/redis"
	"github.com/caselens/claimsift/internal/infrastructure/messaging/kafka"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/internal/infrastructure/storage/minio"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Config tunes the job handler.
type Config struct {
	// MaxRetries bounds in-process attempts for transient failures before
	// the job is left to broker redelivery.
	MaxRetries int

	// RetryBackoff is the pause between in-process attempts.
	RetryBackoff time.Duration

	// LockTTL bounds how long one worker may hold a document. It must exceed
	// the longest plausible analysis.
	LockTTL time.Duration
}

// Deps are the handler's collaborators. Documents may be nil when every job
// carries inline text; Cache and Locks may be nil to disable dedup.
type Deps struct {
	Engine    engine.Engine
	Documents minio.DocumentStore
	Analyses  pgrepo.AnalysisRepository
	Cache     redis.ResultCache
	Locks     redis.JobLock
	Logger    logging.Logger
}

// NewHandler builds the kafka.JobHandler executed per message.
func NewHandler(cfg Config, deps Deps) kafka.JobHandler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	h := &handler{cfg: cfg, deps: deps}
	return h.Handle
}

type handler struct {
	cfg  Config
	deps Deps
}

func (h *handler) Handle(ctx context.Context, job kafka.AnalysisJob) error {
	logger := h.deps.Logger.With(
		logging.String("job_id", job.JobID),
		logging.String("document_id", job.DocumentID),
	)

	text, err := h.resolveText(ctx, &job)
	if err != nil {
		return err
	}

	hash := redis.DocumentHash(text)
	if h.deps.Locks != nil {
		acquired, err := h.deps.Locks.TryAcquire(ctx, hash, h.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			// Another group member is already on this document.
			logger.Info("document locked elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := h.deps.Locks.Release(context.Background(), hash); err != nil {
				logger.Warn("lock release failed", logging.Err(err))
			}
		}()
	}

	if h.deps.Cache != nil {
		if _, err := h.deps.Cache.Get(ctx, text); err == nil {
			logger.Info("result already cached, skipping analysis")
			return nil
		}
	}

	result, err := h.analyzeWithRetry(ctx, logger, &damages.Document{
		ID:     job.DocumentID,
		Text:   text,
		Roster: job.Roster,
	})
	if err != nil {
		return err
	}

	if h.deps.Analyses != nil {
		rec := &pgrepo.AnalysisRecord{
			DocumentID:   job.DocumentID,
			DocumentHash: hash,
			Format:       string(result.Structure.Format),
			Result:       *result,
		}
		if err := h.deps.Analyses.Save(ctx, rec); err != nil {
			return err
		}
		logger.Info("analysis stored",
			logging.String("analysis_id", rec.ID.String()),
			logging.Int64("grand_total", result.GrandTotal),
		)
	}

	if h.deps.Cache != nil {
		if err := h.deps.Cache.Set(ctx, text, result); err != nil {
			logger.Warn("result cache write failed", logging.Err(err))
		}
	}
	return nil
}

// resolveText returns the job's inline text or fetches it from object storage.
func (h *handler) resolveText(ctx context.Context, job *kafka.AnalysisJob) (string, error) {
	if job.Inline() {
		return job.Text, nil
	}
	if h.deps.Documents == nil {
		return "", errors.New(errors.ErrCodeValidation, "job references object storage but no document store is configured")
	}
	return h.deps.Documents.FetchText(ctx, job.Bucket, job.ObjectKey)
}

// analyzeWithRetry retries transient failures in-process; permanent failures
// (validation, empty document) surface immediately for the consumer's
// commit-and-skip path.
func (h *handler) analyzeWithRetry(ctx context.Context, logger logging.Logger, doc *damages.Document) (*damages.AggregationResult, error) {
	var lastErr error
	for attempt := 1; attempt <= h.cfg.MaxRetries; attempt++ {
		result, err := h.deps.Engine.Analyze(ctx, doc)
		if err == nil {
			return result, nil
		}
		if isPermanent(err) {
			return nil, err
		}
		lastErr = err
		logger.Warn("analysis attempt failed",
			logging.Int("attempt", attempt), logging.Err(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.cfg.RetryBackoff):
		}
	}
	return nil, lastErr
}

func isPermanent(err error) bool {
	return errors.IsCode(err, errors.ErrCodeValidation) ||
		errors.IsCode(err, errors.ErrCodeEmptyDocument) ||
		errors.IsCode(err, errors.ErrCodeBadRequest)
}
