package generation

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Draft is the generated prose plus usage accounting.
type Draft struct {
	Text             string `json:"text"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Drafter turns a finished analysis into brief prose.
type Drafter interface {
	Draft(ctx context.Context, req *DraftRequest) (*Draft, error)
}

// Metrics receives drafting outcomes. The prometheus package provides the
// production implementation.
type Metrics interface {
	RecordDraft(model string, success bool, duration time.Duration, promptTokens, completionTokens int)
}

type noopMetrics struct{}

func (noopMetrics) RecordDraft(string, bool, time.Duration, int, int) {}

// chatClient is the slice of the OpenAI client the drafter uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type drafter struct {
	client  chatClient
	cfg     config.DraftingConfig
	metrics Metrics
	logger  logging.Logger
}

// NewDrafter builds the production drafter. BaseURL supports self-hosted
// OpenAI-compatible endpoints.
func NewDrafter(cfg config.DraftingConfig, metrics Metrics, logger logging.Logger) (Drafter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeValidation, "drafting requires an api key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newDrafterWithClient(openai.NewClientWithConfig(clientCfg), cfg, metrics, logger), nil
}

func newDrafterWithClient(client chatClient, cfg config.DraftingConfig, metrics Metrics, logger logging.Logger) Drafter {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &drafter{client: client, cfg: cfg, metrics: metrics, logger: logger}
}

func (d *drafter) Draft(ctx context.Context, req *DraftRequest) (*Draft, error) {
	if req == nil || req.Result.Empty() {
		return nil, errors.New(errors.ErrCodeValidation, "nothing to draft: analysis has no items")
	}

	model := d.cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := d.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1500
	}
	temperature := d.cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	timeout := d.cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		d.metrics.RecordDraft(model, false, time.Since(start), 0, 0)
		return nil, errors.Wrap(err, errors.ErrCodeDraftingUnavailable, "drafting request failed")
	}
	if len(resp.Choices) == 0 {
		d.metrics.RecordDraft(model, false, time.Since(start), resp.Usage.PromptTokens, 0)
		return nil, errors.New(errors.ErrCodeDraftingFailed, "model returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	d.metrics.RecordDraft(model, true, time.Since(start),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	d.logger.Info("draft generated",
		logging.String("document_id", req.DocumentID),
		logging.String("model", model),
		logging.Int("prompt_tokens", resp.Usage.PromptTokens),
		logging.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &Draft{
		Text:             text,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
