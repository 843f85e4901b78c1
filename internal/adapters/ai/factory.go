package ai

import (
	"context"
	"strings"

	"leverguard/internal/adapters/config"
	"leverguard/internal/domain/risk"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// NewNarrator builds the configured narrator wrapped with rate limiting and timeouts.
// Returns nil when no provider is configured. Unless SkipStartupCheck is set the
// provider must answer a model lookup before the monitor starts.
func NewNarrator(ctx context.Context, cfg config.NarrativeConfig) (risk.Narrator, error) {
	provider := strings.ToLower(cfg.Provider)
	log := logger.Get().With("component", "narrator_factory", "provider", provider)

	var (
		narrator risk.Narrator
		err      error
	)
	switch provider {
	case "", config.ProviderNone:
		log.Info("Narrative provider disabled")
		return nil, nil
	case config.ProviderOpenAI:
		narrator, err = NewOpenAINarrator(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens)
	case config.ProviderGemini:
		narrator, err = NewGeminiNarrator(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown narrative provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if p, ok := narrator.(pinger); ok && !cfg.SkipStartupCheck {
		checkCtx := ctx
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			checkCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		if err := p.Ping(checkCtx); err != nil {
			return nil, errors.Wrap(err, "narrative provider startup check")
		}
	}

	log.Infow("Narrative provider ready",
		"model", cfg.Model,
		"requests_per_minute", cfg.RequestsPerMinute,
		"timeout", cfg.Timeout,
	)
	return newLimitedNarrator(provider, narrator, cfg.RequestsPerMinute, cfg.Timeout), nil
}
