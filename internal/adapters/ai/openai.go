package ai

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"leverguard/internal/domain/risk"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	narrativeSystem    = "You are a DeFi risk analyst. Answer in at most three short sentences."
)

var _ risk.Narrator = (*OpenAINarrator)(nil)

// OpenAINarrator asks an OpenAI compatible chat completions endpoint for risk narratives
type OpenAINarrator struct {
	client    openai.Client // NewClient returns Client (not *Client)
	model     string
	maxTokens int64
	log       *logger.Logger
}

// NewOpenAINarrator creates a narrator. baseURL is optional and points the
// client at any OpenAI compatible inference endpoint.
func NewOpenAINarrator(apiKey, baseURL, model string, maxTokens int64) (*OpenAINarrator, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAINarrator{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		log:       logger.Get().With("component", "openai_narrator", "model", model),
	}, nil
}

// Narrate returns the first completion choice for the prompt
func (n *OpenAINarrator) Narrate(ctx context.Context, req risk.NarrativeRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(n.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(narrativeSystem),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(0.3),
	}
	if n.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(n.maxTokens)
	}

	completion, err := n.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrapf(errors.ErrExternal, "openai completion for %s: %v", req.PositionID, err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(errors.ErrNarrativeUnavailable, "openai returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	n.log.Debugw("Narrative generated",
		"position_id", req.PositionID,
		"completion_tokens", completion.Usage.CompletionTokens,
	)
	return text, nil
}

// Ping checks that the configured model is reachable
func (n *OpenAINarrator) Ping(ctx context.Context) error {
	if _, err := n.client.Models.Get(ctx, n.model); err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "openai model %s: %v", n.model, err)
	}
	return nil
}
