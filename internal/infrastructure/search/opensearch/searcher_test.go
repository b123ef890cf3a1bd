package opensearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/pkg/types/damages"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{Addresses: []string{serverURL}},
	})
	require.NoError(t, err)
	return newClientUnchecked(api, nil)
}

func testConfig() config.OpenSearchConfig {
	return config.OpenSearchConfig{
		IndexPrefix: "claimsift-",
		SearchSize:  3,
	}
}

func sampleResult() *damages.AggregationResult {
	return &damages.AggregationResult{
		Claimants: []damages.ClaimantBreakdown{{
			ID: "陳慶華",
			Items: []damages.DamageItem{
				{Claimant: "陳慶華", Category: damages.CategoryMedical, Amount: 43795, Description: "醫療費用43,795元"},
				{Claimant: "陳慶華", Category: damages.CategoryCare, Amount: 54000, Description: "看護費用54,000元"},
			},
			Subtotal: 97795,
		}},
		GrandTotal: 97795,
	}
}

const searchResponse = `{
	"took": 3,
	"timed_out": false,
	"hits": {
		"total": {"value": 1, "relation": "eq"},
		"max_score": 1.5,
		"hits": [{
			"_index": "claimsift-precedents",
			"_id": "109年訴字第1234號:abc",
			"_score": 1.5,
			"_source": {
				"case_id": "109年訴字第1234號",
				"category": "醫療費用",
				"paragraph": "原告支出醫療費用共43,795元，有診斷證明書可稽。",
				"amount": 43795
			}
		}]
	}
}`

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

func TestFindSimilarParsesHits(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	s := NewSearcher(newTestClient(t, server.URL), testConfig(), nil, nil)
	hits, err := s.FindSimilar(context.Background(), sampleResult())

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "109年訴字第1234號", hits[0].Doc.CaseID)
	assert.Equal(t, int64(43795), hits[0].Doc.Amount)
	assert.InDelta(t, 1.5, hits[0].Score, 1e-9)

	assert.Contains(t, string(body), "multi_match")
	assert.Contains(t, string(body), "醫療費用")
	assert.NotContains(t, string(body), "knn")
}

func TestFindSimilarMemoizes(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	s := NewSearcher(newTestClient(t, server.URL), testConfig(), nil, nil)
	for i := 0; i < 3; i++ {
		_, err := s.FindSimilar(context.Background(), sampleResult())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, requests)
}

func TestFindSimilarHybridIncludesVector(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	s := NewSearcher(newTestClient(t, server.URL), testConfig(), embedder, nil)
	_, err := s.FindSimilar(context.Background(), sampleResult())

	require.NoError(t, err)
	assert.Contains(t, string(body), `"knn"`)
	assert.Contains(t, string(body), `"embedding"`)
}

func TestFindSimilarEmbedderFailureFallsBackToKeyword(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	embedder := &stubEmbedder{err: assert.AnError}
	s := NewSearcher(newTestClient(t, server.URL), testConfig(), embedder, nil)
	hits, err := s.FindSimilar(context.Background(), sampleResult())

	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.NotContains(t, string(body), `"knn"`)
}

func TestFindSimilarEmptyResultSkipsSearch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	s := NewSearcher(newTestClient(t, server.URL), testConfig(), nil, nil)
	hits, err := s.FindSimilar(context.Background(), &damages.AggregationResult{})

	assert.NoError(t, err)
	assert.Nil(t, hits)
	assert.Equal(t, 0, requests)
}

func TestQueryTextDeduplicates(t *testing.T) {
	result := sampleResult()
	// Two claimants with the same category should not repeat the label.
	result.Claimants = append(result.Claimants, damages.ClaimantBreakdown{
		ID: "朱庭慧",
		Items: []damages.DamageItem{
			{Claimant: "朱庭慧", Category: damages.CategoryMedical, Amount: 100, Description: "醫療費用43,795元"},
		},
	})

	text := queryText(result)
	assert.Equal(t, 1, countOccurrences(text, "醫療費用43,795元"))
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
