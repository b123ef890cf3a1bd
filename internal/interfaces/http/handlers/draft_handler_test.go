package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	graphrepo "github.com/caselens/claimsift/internal/infrastructure/database/neo4j/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/database/postgres/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/search/opensearch"
	"github.com/caselens/claimsift/internal/generation"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

type fakeSearcher struct {
	hits []opensearch.PrecedentHit
	err  error
}

func (f *fakeSearcher) FindSimilar(context.Context, *damages.AggregationResult) ([]opensearch.PrecedentHit, error) {
	return f.hits, f.err
}

type fakeStatuteRepo struct {
	byCategory map[damages.Category][]graphrepo.Statute
	calls      []damages.Category
}

func (f *fakeStatuteRepo) StatutesFor(_ context.Context, category damages.Category) ([]graphrepo.Statute, error) {
	f.calls = append(f.calls, category)
	return f.byCategory[category], nil
}

func (f *fakeStatuteRepo) EnsureGraph(context.Context) error { return nil }

type fakeDrafter struct {
	draft   *generation.Draft
	err     error
	lastReq *generation.DraftRequest
}

func (f *fakeDrafter) Draft(_ context.Context, req *generation.DraftRequest) (*generation.Draft, error) {
	f.lastReq = req
	return f.draft, f.err
}

func newDraftRouter(h *DraftHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/analyses/:id/draft", h.Draft)
	return r
}

func storedRecord(t *testing.T, repo *fakeRepo) *repositories.AnalysisRecord {
	t.Helper()
	rec := &repositories.AnalysisRecord{DocumentID: "doc-1", Result: *sampleResult()}
	require.NoError(t, repo.Save(context.Background(), rec))
	return rec
}

func TestDraftAssemblesFullRequest(t *testing.T) {
	repo := newFakeRepo()
	rec := storedRecord(t, repo)

	searcher := &fakeSearcher{hits: []opensearch.PrecedentHit{
		{Doc: opensearch.PrecedentDoc{CaseID: "109年訴字第1234號", Paragraph: "前例段落"}, Score: 1.5},
	}}
	statutes := &fakeStatuteRepo{byCategory: map[damages.Category][]graphrepo.Statute{
		damages.CategoryMedical: {{Code: "民法", Article: "193", Title: "侵害身體健康之財產上損害賠償"}},
	}}
	drafter := &fakeDrafter{draft: &generation.Draft{Text: "草稿內容", Model: "gpt-4o-mini"}}

	h := NewDraftHandler(repo, searcher, statutes, drafter, nil)
	w := doJSON(t, newDraftRouter(h), http.MethodPost, "/api/v1/analyses/"+rec.ID.String()+"/draft", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var draft generation.Draft
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
	assert.Equal(t, "草稿內容", draft.Text)

	require.NotNil(t, drafter.lastReq)
	assert.Equal(t, "doc-1", drafter.lastReq.DocumentID)
	assert.Len(t, drafter.lastReq.Precedents, 1)
	assert.Len(t, drafter.lastReq.Statutes[damages.CategoryMedical], 1)
	assert.Equal(t, []damages.Category{damages.CategoryMedical}, statutes.calls)
}

func TestDraftContinuesWithoutPrecedents(t *testing.T) {
	repo := newFakeRepo()
	rec := storedRecord(t, repo)

	searcher := &fakeSearcher{err: errors.New(errors.ErrCodeSearchUnavailable, "cluster down")}
	drafter := &fakeDrafter{draft: &generation.Draft{Text: "草稿內容"}}

	h := NewDraftHandler(repo, searcher, nil, drafter, nil)
	w := doJSON(t, newDraftRouter(h), http.MethodPost, "/api/v1/analyses/"+rec.ID.String()+"/draft", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, drafter.lastReq)
	assert.Empty(t, drafter.lastReq.Precedents)
}

func TestDraftUnknownAnalysisReturns404(t *testing.T) {
	h := NewDraftHandler(newFakeRepo(), nil, nil, &fakeDrafter{}, nil)

	w := doJSON(t, newDraftRouter(h), http.MethodPost, "/api/v1/analyses/2da8f1f0-1111-4222-8333-444455556666/draft", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftRejectsMalformedID(t *testing.T) {
	h := NewDraftHandler(newFakeRepo(), nil, nil, &fakeDrafter{}, nil)

	w := doJSON(t, newDraftRouter(h), http.MethodPost, "/api/v1/analyses/nope/draft", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDraftSurfacesDrafterOutage(t *testing.T) {
	repo := newFakeRepo()
	rec := storedRecord(t, repo)
	drafter := &fakeDrafter{err: errors.New(errors.ErrCodeDraftingUnavailable, "provider unreachable")}

	h := NewDraftHandler(repo, nil, nil, drafter, nil)
	w := doJSON(t, newDraftRouter(h), http.MethodPost, "/api/v1/analyses/"+rec.ID.String()+"/draft", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
