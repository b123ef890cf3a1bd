package generation

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/pkg/errors"
)

// embeddingClient is the slice of the OpenAI client the embedder uses.
type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder produces dense vectors for precedent retrieval. It satisfies the
// opensearch package's Embedder interface.
type Embedder struct {
	client embeddingClient
	model  openai.EmbeddingModel
}

// NewEmbedder builds the embedder on the drafting provider's credentials.
func NewEmbedder(cfg config.DraftingConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeValidation, "embedding requires an api key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.SmallEmbedding3,
	}, nil
}

func newEmbedderWithClient(client embeddingClient) *Embedder {
	return &Embedder{client: client, model: openai.SmallEmbedding3}
}

// Embed returns the vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "embedding request failed")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New(errors.ErrCodeExternalService, "embedding response was empty")
	}
	return resp.Data[0].Embedding, nil
}
