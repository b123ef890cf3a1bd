// Package engine wires the analysis stages into a single pipeline: structure
// detection, the extraction cascade, role and category classification,
// claimant attribution, deduplication and aggregation. The pipeline is the
// only entry point callers use; the stage packages underneath it are an
// implementation detail.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/caselens/claimsift/internal/engine/aggregate"
	"github.com/caselens/claimsift/internal/engine/attribute"
	"github.com/caselens/claimsift/internal/engine/classify"
	"github.com/caselens/claimsift/internal/engine/dedup"
	"github.com/caselens/claimsift/internal/engine/extract"
	"github.com/caselens/claimsift/internal/engine/format"
	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Engine analyzes damage-claim narratives.
type Engine interface {
	// Analyze runs the full pipeline over one document. A document in which
	// no amounts can be found yields an empty-but-valid result, not an
	// error; callers must treat emptiness as "manual review required".
	Analyze(ctx context.Context, doc *damages.Document) (*damages.AggregationResult, error)

	// AnalyzeBatch analyzes documents concurrently, preserving input order.
	// Per-document failures surface in the returned error slice; the result
	// and error slices are index-aligned with the input.
	AnalyzeBatch(ctx context.Context, docs []*damages.Document) ([]*damages.AggregationResult, []error)
}

// Metrics records operational telemetry for the pipeline.
type Metrics interface {
	RecordAnalysis(ctx context.Context, formatKind string, itemCount int, durationMs float64)
	RecordValidation(ctx context.Context, match bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordAnalysis(context.Context, string, int, float64) {}
func (noopMetrics) RecordValidation(context.Context, bool)               {}

// NewNopMetrics returns a Metrics implementation that discards everything.
func NewNopMetrics() Metrics { return noopMetrics{} }

// Config holds the pipeline's tunable parameters.
type Config struct {
	// MinAmount drops candidates below a plausible damage amount.
	MinAmount int64

	// ContextWindow is the number of runes captured on each side of a match.
	ContextWindow int

	// BasisWindow is how many runes before an amount are searched for a
	// calculation-basis indicator.
	BasisWindow int

	// MaxDocumentBytes rejects oversized inputs before any regex work.
	MaxDocumentBytes int

	// BatchConcurrency bounds the number of documents analyzed in parallel.
	BatchConcurrency int
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		MinAmount:        100,
		ContextWindow:    150,
		BasisWindow:      30,
		MaxDocumentBytes: 4 << 20,
		BatchConcurrency: 4,
	}
}

type pipeline struct {
	cfg        Config
	detector   *format.Detector
	extractor  *extract.Extractor
	classifier *classify.Classifier
	attributor *attribute.Attributor
	dedup      *dedup.Deduplicator
	aggregator *aggregate.Aggregator
	metrics    Metrics
	logger     logging.Logger
}

// New constructs the pipeline. Zero-value config fields fall back to
// defaults; a nil rule set, metrics or logger falls back to defaults.
func New(cfg Config, r *rules.Rules, metrics Metrics, logger logging.Logger) Engine {
	def := DefaultConfig()
	if cfg.MinAmount == 0 {
		cfg.MinAmount = def.MinAmount
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = def.ContextWindow
	}
	if cfg.BasisWindow == 0 {
		cfg.BasisWindow = def.BasisWindow
	}
	if cfg.MaxDocumentBytes == 0 {
		cfg.MaxDocumentBytes = def.MaxDocumentBytes
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = def.BatchConcurrency
	}
	if r == nil {
		r = rules.Default()
	}
	if metrics == nil {
		metrics = NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &pipeline{
		cfg:      cfg,
		detector: format.NewDetector(r, logger),
		extractor: extract.NewExtractor(extract.Config{
			MinAmount:     cfg.MinAmount,
			ContextWindow: cfg.ContextWindow,
		}, r, logger),
		classifier: classify.NewClassifier(classify.Config{
			BasisWindow: cfg.BasisWindow,
		}, r, logger),
		attributor: attribute.NewAttributor(r, logger),
		dedup:      dedup.NewDeduplicator(logger),
		aggregator: aggregate.NewAggregator(r, logger),
		metrics:    metrics,
		logger:     logger,
	}
}

func (p *pipeline) Analyze(ctx context.Context, doc *damages.Document) (*damages.AggregationResult, error) {
	start := time.Now()

	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, errors.New(errors.ErrCodeEmptyDocument, "document text is empty")
	}
	if len(doc.Text) > p.cfg.MaxDocumentBytes {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"document is %d bytes, limit is %d", len(doc.Text), p.cfg.MaxDocumentBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structure := p.detector.Detect(doc)
	cands := p.extractor.Extract(doc.Text, structure)
	p.classifier.Classify(cands)
	p.attributor.Attribute(cands, structure, doc.Text)
	cands = p.dedup.Deduplicate(cands)
	result := p.aggregator.Aggregate(cands, structure, doc.Text)

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	p.metrics.RecordAnalysis(ctx, string(structure.Format), result.ItemCount(), elapsed)
	if result.Validation != nil {
		p.metrics.RecordValidation(ctx, result.Validation.Match)
	}
	p.logger.Info("document analyzed",
		logging.String("document_id", doc.ID),
		logging.String("format", string(structure.Format)),
		logging.Int("items", result.ItemCount()),
		logging.Int64("grand_total", result.GrandTotal),
		logging.Float64("duration_ms", elapsed),
	)
	return result, nil
}

func (p *pipeline) AnalyzeBatch(ctx context.Context, docs []*damages.Document) ([]*damages.AggregationResult, []error) {
	results := make([]*damages.AggregationResult, len(docs))
	errs := make([]error, len(docs))
	if len(docs) == 0 {
		return results, errs
	}

	sem := make(chan struct{}, p.cfg.BatchConcurrency)
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(idx int, d *damages.Document) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx], errs[idx] = p.Analyze(ctx, d)
		}(i, doc)
	}
	wg.Wait()
	return results, errs
}
