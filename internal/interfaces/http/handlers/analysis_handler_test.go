package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselens/claimsift/internal/infrastructure/database/postgres/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/messaging/kafka"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEngine struct {
	result *damages.AggregationResult
	err    error
	calls  int
}

func (f *fakeEngine) Analyze(_ context.Context, _ *damages.Document) (*damages.AggregationResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeEngine) AnalyzeBatch(ctx context.Context, docs []*damages.Document) ([]*damages.AggregationResult, []error) {
	results := make([]*damages.AggregationResult, len(docs))
	errs := make([]error, len(docs))
	for i := range docs {
		results[i], errs[i] = f.Analyze(ctx, docs[i])
	}
	return results, errs
}

type fakeCache struct {
	stored map[string]*damages.AggregationResult
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string]*damages.AggregationResult)}
}

func (f *fakeCache) Get(_ context.Context, text string) (*damages.AggregationResult, error) {
	if r, ok := f.stored[text]; ok {
		return r, nil
	}
	return nil, errors.New(errors.ErrCodeCacheError, "cache miss")
}

func (f *fakeCache) Set(_ context.Context, text string, result *damages.AggregationResult) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.stored[text] = result
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, text string) error {
	delete(f.stored, text)
	return nil
}

func (f *fakeCache) Ping(context.Context) error { return nil }

type fakeRepo struct {
	saved   []*repositories.AnalysisRecord
	byID    map[uuid.UUID]*repositories.AnalysisRecord
	saveErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*repositories.AnalysisRecord)}
}

func (f *fakeRepo) Save(_ context.Context, rec *repositories.AnalysisRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.saved = append(f.saved, rec)
	f.byID[rec.ID] = rec
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*repositories.AnalysisRecord, error) {
	rec, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrAnalysisNotFound
	}
	return rec, nil
}

func (f *fakeRepo) GetByDocumentHash(_ context.Context, hash string) (*repositories.AnalysisRecord, error) {
	for _, rec := range f.byID {
		if rec.DocumentHash == hash {
			return rec, nil
		}
	}
	return nil, repositories.ErrAnalysisNotFound
}

func (f *fakeRepo) List(_ context.Context, limit, offset int) ([]*repositories.AnalysisRecord, error) {
	if offset >= len(f.saved) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.saved) {
		end = len(f.saved)
	}
	return f.saved[offset:end], nil
}

type fakeProducer struct {
	jobs []*kafka.AnalysisJob
	err  error
}

func (f *fakeProducer) Enqueue(_ context.Context, job *kafka.AnalysisJob) error {
	if f.err != nil {
		return f.err
	}
	job.JobID = uuid.NewString()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func sampleResult() *damages.AggregationResult {
	return &damages.AggregationResult{
		Claimants: []damages.ClaimantBreakdown{
			{
				ID: "陳慶華",
				Items: []damages.DamageItem{
					{Claimant: "陳慶華", Category: damages.CategoryMedical, Amount: 43795, Description: "醫療費用"},
				},
				Subtotal: 43795,
			},
		},
		GrandTotal: 43795,
		Structure:  damages.CaseStructure{Format: damages.FormatNumberedList, ClaimantCount: 1},
	}
}

func newAnalysisRouter(h *AnalysisHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/analyze", h.Analyze)
	r.GET("/api/v1/analyses", h.List)
	r.GET("/api/v1/analyses/:id", h.Get)
	r.POST("/api/v1/batch", h.EnqueueBatch)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeRunsEngineAndPersists(t *testing.T) {
	eng := &fakeEngine{result: sampleResult()}
	repo := newFakeRepo()
	cache := newFakeCache()
	h := NewAnalysisHandler(eng, cache, repo, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		DocumentID: "doc-1",
		Text:       "原告陳慶華支出醫療費用43,795元",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.ID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, int64(43795), resp.Result.GrandTotal)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "doc-1", repo.saved[0].DocumentID)
	assert.Len(t, cache.stored, 1)
}

func TestAnalyzeServesCachedResult(t *testing.T) {
	eng := &fakeEngine{result: sampleResult()}
	cache := newFakeCache()
	text := "原告陳慶華支出醫療費用43,795元"
	cache.stored[text] = sampleResult()
	h := NewAnalysisHandler(eng, cache, nil, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{Text: text})

	require.Equal(t, http.StatusOK, w.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, 0, eng.calls)
}

func TestAnalyzeRejectsMissingText(t *testing.T) {
	h := NewAnalysisHandler(&fakeEngine{result: sampleResult()}, nil, nil, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/analyze", map[string]string{"document_id": "doc-1"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeValidation), resp.Code)
}

func TestAnalyzeMasksInternalErrors(t *testing.T) {
	eng := &fakeEngine{err: errors.New(errors.ErrCodeInternal, "pipeline stage exploded: secret detail")}
	h := NewAnalysisHandler(eng, nil, nil, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{Text: "x"})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeInternal), resp.Code)
	assert.NotContains(t, resp.Message, "secret detail")
}

func TestAnalyzeSurvivesPersistenceFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New(errors.ErrCodeDatabaseError, "db down")
	h := NewAnalysisHandler(&fakeEngine{result: sampleResult()}, nil, repo, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/analyze", AnalyzeRequest{Text: "x"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.ID)
	require.NotNil(t, resp.Result)
}

func TestGetReturnsStoredAnalysis(t *testing.T) {
	repo := newFakeRepo()
	rec := &repositories.AnalysisRecord{DocumentID: "doc-1", Result: *sampleResult()}
	require.NoError(t, repo.Save(context.Background(), rec))
	h := NewAnalysisHandler(&fakeEngine{}, nil, repo, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodGet, "/api/v1/analyses/"+rec.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got repositories.AnalysisRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "doc-1", got.DocumentID)
}

func TestGetRejectsMalformedID(t *testing.T) {
	h := NewAnalysisHandler(&fakeEngine{}, nil, newFakeRepo(), nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodGet, "/api/v1/analyses/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownIDReturns404(t *testing.T) {
	h := NewAnalysisHandler(&fakeEngine{}, nil, newFakeRepo(), nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodGet, "/api/v1/analyses/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReturnsRecords(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(context.Background(), &repositories.AnalysisRecord{
			DocumentID: "doc", Result: *sampleResult(),
		}))
	}
	h := NewAnalysisHandler(&fakeEngine{}, nil, repo, nil, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodGet, "/api/v1/analyses?limit=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestEnqueueBatchAccepts(t *testing.T) {
	producer := &fakeProducer{}
	h := NewAnalysisHandler(&fakeEngine{}, nil, nil, producer, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/batch", BatchRequest{
		DocumentID: "doc-7",
		Bucket:     "cases",
		ObjectKey:  "doc-7.txt",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, producer.jobs, 1)
	assert.Equal(t, "doc-7", producer.jobs[0].DocumentID)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["job_id"])
}

func TestEnqueueBatchRequiresDocumentID(t *testing.T) {
	h := NewAnalysisHandler(&fakeEngine{}, nil, nil, &fakeProducer{}, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/batch", map[string]string{"text": "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnqueueBatchSurfacesProducerFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New(errors.ErrCodeServiceUnavailable, "broker unreachable")}
	h := NewAnalysisHandler(&fakeEngine{}, nil, nil, producer, nil)

	w := doJSON(t, newAnalysisRouter(h), http.MethodPost, "/api/v1/batch", BatchRequest{DocumentID: "doc-7", Text: "x"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
