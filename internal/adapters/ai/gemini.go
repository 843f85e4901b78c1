package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"leverguard/internal/domain/risk"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

const defaultGeminiModel = "gemini-2.5-flash"

var _ risk.Narrator = (*GeminiNarrator)(nil)

// GeminiNarrator generates risk narratives with the Gemini API
type GeminiNarrator struct {
	client    *genai.Client
	model     string
	maxTokens int32
	log       *logger.Logger
}

// NewGeminiNarrator creates a Gemini backed narrator
func NewGeminiNarrator(ctx context.Context, apiKey, baseURL, model string, maxTokens int64) (*GeminiNarrator, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &GeminiNarrator{
		client:    client,
		model:     model,
		maxTokens: int32(maxTokens),
		log:       logger.Get().With("component", "gemini_narrator", "model", model),
	}, nil
}

// Narrate generates a narrative for the prompt
func (n *GeminiNarrator) Narrate(ctx context.Context, req risk.NarrativeRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(narrativeSystem, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
	}
	if n.maxTokens > 0 {
		config.MaxOutputTokens = n.maxTokens
	}

	resp, err := n.client.Models.GenerateContent(ctx, n.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", errors.Wrapf(errors.ErrExternal, "gemini generate for %s: %v", req.PositionID, err)
	}

	text := strings.TrimSpace(resp.Text())
	n.log.Debugw("Narrative generated", "position_id", req.PositionID, "length", len(text))
	return text, nil
}

// Ping checks that the configured model is reachable
func (n *GeminiNarrator) Ping(ctx context.Context) error {
	if _, err := n.client.Models.Get(ctx, n.model, nil); err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "gemini model %s: %v", n.model, err)
	}
	return nil
}
