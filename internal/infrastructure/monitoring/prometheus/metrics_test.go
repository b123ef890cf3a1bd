package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RecordHTTPRequest("POST", "/api/v1/analyze", 200, 25*time.Millisecond)

	out := scrape(t, c)
	assert.Contains(t, out, "claimsift_test_http_requests_total")
	assert.Contains(t, out, `status_code="200"`)
	assert.Contains(t, out, "claimsift_test_http_request_duration_seconds_count")
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RecordCacheAccess("results", true)
	m.RecordCacheAccess("results", false)
	m.RecordCacheAccess("results", false)

	out := scrape(t, c)
	assert.Contains(t, out, `claimsift_test_cache_hits_total{cache="results"} 1`)
	assert.Contains(t, out, `claimsift_test_cache_misses_total{cache="results"} 2`)
}

func TestRecordDraft(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RecordDraft("gpt-4o-mini", true, 2*time.Second, 1200, 450)
	m.RecordDraft("gpt-4o-mini", false, time.Second, 1200, 0)

	out := scrape(t, c)
	assert.Contains(t, out, `status="success"`)
	assert.Contains(t, out, `status="failure"`)
	assert.Contains(t, out, `direction="prompt"`)
}

func TestEngineMetricsAdapter(t *testing.T) {
	m, c := newTestAppMetrics(t)
	em := NewEngineMetrics(m)

	em.RecordAnalysis(context.Background(), "free_format", 3, 12.5)
	em.RecordAnalysis(context.Background(), "free_format", 0, 2.0)
	em.RecordValidation(context.Background(), false)

	out := scrape(t, c)
	assert.Contains(t, out, `claimsift_test_analyses_total{format="free_format",status="empty"} 1`)
	assert.Contains(t, out, `claimsift_test_analyses_total{format="free_format",status="ok"} 1`)
	assert.Contains(t, out, `claimsift_test_validations_total{result="mismatch"} 1`)
}
