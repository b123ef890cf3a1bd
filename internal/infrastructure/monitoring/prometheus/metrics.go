package prometheus

import (
	"context"
	"fmt"
	"time"
)

// AppMetrics holds every metric the application emits.
type AppMetrics struct {
	// HTTP layer.
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Analysis engine.
	AnalysesTotal     CounterVec
	AnalysisDuration  HistogramVec
	AnalysisItemCount HistogramVec
	ValidationsTotal  CounterVec

	// Batch worker.
	JobsTotal          CounterVec
	JobProcessDuration HistogramVec

	// Drafting collaborator.
	DraftRequestsTotal CounterVec
	DraftDuration      HistogramVec
	DraftTokensTotal   CounterVec

	// Infrastructure.
	DBQueryDuration     HistogramVec
	SearchQueryDuration HistogramVec
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec
	HealthCheckStatus   GaugeVec
}

var (
	httpDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	analysisDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	jobDurationBuckets      = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	draftDurationBuckets    = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	dbDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	itemCountBuckets        = []float64{0, 1, 2, 3, 5, 8, 13, 21, 34}
)

// NewAppMetrics registers the application metric set against the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path"),

		AnalysesTotal:     collector.RegisterCounter("analyses_total", "Documents analyzed", "format", "status"),
		AnalysisDuration:  collector.RegisterHistogram("analysis_duration_seconds", "Engine analysis duration", analysisDurationBuckets, "format"),
		AnalysisItemCount: collector.RegisterHistogram("analysis_item_count", "Damage items per analyzed document", itemCountBuckets, "format"),
		ValidationsTotal:  collector.RegisterCounter("validations_total", "Stated-total validations", "result"),

		JobsTotal:          collector.RegisterCounter("jobs_total", "Batch analysis jobs", "status"),
		JobProcessDuration: collector.RegisterHistogram("job_process_duration_seconds", "Batch job processing duration", jobDurationBuckets),

		DraftRequestsTotal: collector.RegisterCounter("draft_requests_total", "Draft generation requests", "model", "status"),
		DraftDuration:      collector.RegisterHistogram("draft_duration_seconds", "Draft generation duration", draftDurationBuckets, "model"),
		DraftTokensTotal:   collector.RegisterCounter("draft_tokens_total", "Draft tokens used", "model", "direction"),

		DBQueryDuration:     collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", dbDurationBuckets, "operation"),
		SearchQueryDuration: collector.RegisterHistogram("search_query_duration_seconds", "Reference search duration", dbDurationBuckets, "kind"),
		CacheHitsTotal:      collector.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal:    collector.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		HealthCheckStatus:   collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component"),
	}
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheAccess records a hit or miss against a named cache.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordJob records a consumed batch job.
func (m *AppMetrics) RecordJob(status string, duration time.Duration) {
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobProcessDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordDraft records a drafting round trip.
func (m *AppMetrics) RecordDraft(model string, success bool, duration time.Duration, promptTokens, completionTokens int) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.DraftRequestsTotal.WithLabelValues(model, status).Inc()
	m.DraftDuration.WithLabelValues(model).Observe(duration.Seconds())
	m.DraftTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.DraftTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// EngineMetrics adapts AppMetrics to the engine's telemetry interface.
type EngineMetrics struct {
	app *AppMetrics
}

// NewEngineMetrics wraps AppMetrics for injection into the pipeline.
func NewEngineMetrics(app *AppMetrics) *EngineMetrics {
	return &EngineMetrics{app: app}
}

func (m *EngineMetrics) RecordAnalysis(_ context.Context, formatKind string, itemCount int, durationMs float64) {
	status := "ok"
	if itemCount == 0 {
		status = "empty"
	}
	m.app.AnalysesTotal.WithLabelValues(formatKind, status).Inc()
	m.app.AnalysisDuration.WithLabelValues(formatKind).Observe(durationMs / 1000.0)
	m.app.AnalysisItemCount.WithLabelValues(formatKind).Observe(float64(itemCount))
}

func (m *EngineMetrics) RecordValidation(_ context.Context, match bool) {
	result := "match"
	if !match {
		result = "mismatch"
	}
	m.app.ValidationsTotal.WithLabelValues(result).Inc()
}
