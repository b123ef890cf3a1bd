package opensearch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// embeddingDim matches the drafting provider's embedding model output.
const embeddingDim = 1536

// Indexer writes precedent paragraphs into the retrieval index.
type Indexer interface {
	// EnsureIndex creates the precedent index if it does not exist.
	EnsureIndex(ctx context.Context) error
	// IndexPrecedent stores one paragraph, embedding it first when an
	// embedder is available.
	IndexPrecedent(ctx context.Context, doc PrecedentDoc) error
}

type indexer struct {
	client   *Client
	embedder Embedder
	logger   logging.Logger
	index    string
}

// NewIndexer builds the precedent indexer.
func NewIndexer(client *Client, cfg config.OpenSearchConfig, embedder Embedder, logger logging.Logger) Indexer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &indexer{
		client:   client,
		embedder: embedder,
		logger:   logger,
		index:    cfg.IndexPrefix + "precedents",
	}
}

// precedentMapping defines the index schema. The knn_vector field powers the
// semantic half of the hybrid query; the cjk analyzer tokenizes the
// Traditional Chinese paragraphs for BM25.
var precedentMapping = map[string]any{
	"settings": map[string]any{
		"index": map[string]any{"knn": true},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"case_id":   map[string]any{"type": "keyword"},
			"court":     map[string]any{"type": "keyword"},
			"year":      map[string]any{"type": "integer"},
			"category":  map[string]any{"type": "text", "analyzer": "cjk"},
			"paragraph": map[string]any{"type": "text", "analyzer": "cjk"},
			"amount":    map[string]any{"type": "long"},
			"embedding": map[string]any{
				"type":      "knn_vector",
				"dimension": embeddingDim,
			},
		},
	},
}

func (ix *indexer) EnsureIndex(ctx context.Context) error {
	body, err := json.Marshal(precedentMapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode index mapping")
	}

	_, err = ix.client.api.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: ix.index,
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeSearchUnavailable, "failed to create precedent index")
	}

	ix.logger.Info("precedent index created", logging.String("index", ix.index))
	return nil
}

func (ix *indexer) IndexPrecedent(ctx context.Context, doc PrecedentDoc) error {
	if doc.CaseID == "" || doc.Paragraph == "" {
		return errors.New(errors.ErrCodeValidation, "precedent requires case_id and paragraph")
	}

	if ix.embedder != nil && doc.Embedding == nil {
		v, err := ix.embedder.Embed(ctx, doc.Paragraph)
		if err != nil {
			ix.logger.Warn("indexing precedent without embedding", logging.Err(err))
		} else {
			doc.Embedding = v
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode precedent")
	}

	_, err = ix.client.api.Index(ctx, opensearchapi.IndexReq{
		Index:      ix.index,
		DocumentID: docID(doc),
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchQueryFailed, "failed to index precedent")
	}
	return nil
}

// docID makes indexing idempotent: re-ingesting the same case paragraph
// overwrites rather than duplicates.
func docID(doc PrecedentDoc) string {
	sum := sha256.Sum256([]byte(doc.Paragraph))
	return fmt.Sprintf("%s:%s", doc.CaseID, hex.EncodeToString(sum[:8]))
}
