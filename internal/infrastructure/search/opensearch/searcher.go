package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"
	gocache "github.com/patrickmn/go-cache"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// PrecedentDoc is one indexed precedent paragraph: a passage from a past
// judgment that discusses an awarded amount for one damage category.
type PrecedentDoc struct {
	CaseID    string    `json:"case_id"`
	Court     string    `json:"court,omitempty"`
	Year      int       `json:"year,omitempty"`
	Category  string    `json:"category"`
	Paragraph string    `json:"paragraph"`
	Amount    int64     `json:"amount,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// PrecedentHit is a retrieved precedent with its relevance score.
type PrecedentHit struct {
	Doc   PrecedentDoc `json:"doc"`
	Score float64      `json:"score"`
}

// Embedder produces a dense vector for a text. The drafting layer provides
// an implementation backed by the LLM provider; a nil Embedder degrades the
// searcher to keyword-only retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves precedents similar to a finished analysis.
type Searcher interface {
	FindSimilar(ctx context.Context, result *damages.AggregationResult) ([]PrecedentHit, error)
}

type searcher struct {
	client   *Client
	embedder Embedder
	logger   logging.Logger
	index    string
	size     int
	memo     *gocache.Cache
}

// NewSearcher builds the precedent searcher. Identical queries within the
// memoize TTL are served from process memory; batch runs over a case corpus
// repeat the same category mixes constantly.
func NewSearcher(client *Client, cfg config.OpenSearchConfig, embedder Embedder, logger logging.Logger) Searcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	size := cfg.SearchSize
	if size <= 0 {
		size = 5
	}
	ttl := cfg.MemoizeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &searcher{
		client:   client,
		embedder: embedder,
		logger:   logger,
		index:    cfg.IndexPrefix + "precedents",
		size:     size,
		memo:     gocache.New(ttl, 2*ttl),
	}
}

func (s *searcher) FindSimilar(ctx context.Context, result *damages.AggregationResult) ([]PrecedentHit, error) {
	query := queryText(result)
	if query == "" {
		return nil, nil
	}

	if cached, ok := s.memo.Get(query); ok {
		return cached.([]PrecedentHit), nil
	}

	var vector []float32
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, query)
		if err != nil {
			// Keyword retrieval alone is still useful.
			s.logger.Warn("embedding failed, falling back to keyword search", logging.Err(err))
		} else {
			vector = v
		}
	}

	body, err := json.Marshal(buildQuery(query, vector, s.size))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode search query")
	}

	resp, err := s.client.api.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchQueryFailed, "precedent search failed")
	}

	hits := make([]PrecedentHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var doc PrecedentDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			s.logger.Warn("skipping malformed precedent document",
				logging.String("id", h.ID), logging.Err(err))
			continue
		}
		doc.Embedding = nil
		hits = append(hits, PrecedentHit{Doc: doc, Score: float64(h.Score)})
	}

	s.memo.SetDefault(query, hits)
	s.logger.Debug("precedents retrieved",
		logging.Int("hits", len(hits)), logging.String("index", s.index))
	return hits, nil
}

// queryText renders the analysis into retrieval text: the Chinese category
// labels plus the item descriptions, deduplicated in first-appearance order.
func queryText(result *damages.AggregationResult) string {
	if result.Empty() {
		return ""
	}
	var parts []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			parts = append(parts, s)
		}
	}
	for _, c := range result.Claimants {
		for _, item := range c.Items {
			add(item.Category.Label())
			add(item.Description)
		}
	}
	return strings.Join(parts, " ")
}

// buildQuery composes the hybrid retrieval body: BM25 over paragraph and
// category, plus a kNN clause when an embedding is available. Both clauses
// sit in one bool/should so either signal can surface a hit.
func buildQuery(query string, vector []float32, size int) map[string]any {
	should := []map[string]any{
		{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"paragraph^2", "category"},
			},
		},
	}
	if len(vector) > 0 {
		should = append(should, map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{
					"vector": vector,
					"k":      size,
				},
			},
		})
	}
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{"should": should},
		},
	}
}
