package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// Bot is a send-only Telegram bot
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	rateLimiter *rate.Limiter
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Endpoint       string // defaults to tgbotapi.APIEndpoint
	HTTPTimeout    time.Duration
	RateLimitBurst int // default 30
	RateLimitRate  int // messages per second, default 20
}

// NewBot authorizes the bot token and returns a bot ready to send
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20 // Telegram limit is 30
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	log = log.With("component", "telegram_bot")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		log:         log,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
	}, nil
}

// SendMessageWithContext sends a plain text message to a chat
func (b *Bot) SendMessageWithContext(ctx context.Context, chatID int64, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	start := time.Now()
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	duration := time.Since(start)

	if err != nil {
		return errors.Wrapf(err, "send message to chat %d", chatID)
	}

	b.log.Debugw("Message sent",
		"chat_id", chatID,
		"text_length", len(text),
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}
