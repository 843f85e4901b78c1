package telegram

import (
	"context"

	"leverguard/internal/domain/risk"
	"leverguard/internal/events"
	"leverguard/pkg/templates"
)

// Sender sends a text message to a chat
type Sender interface {
	SendMessageWithContext(ctx context.Context, chatID int64, text string) error
}

var _ events.Sink = (*Notifier)(nil)

// Notifier forwards critical risk alerts to an operator chat
type Notifier struct {
	sender Sender
	chatID int64
}

// NewNotifier creates a Telegram alert sink
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

func (n *Notifier) Name() string { return "telegram" }

// Send delivers critical alerts and ignores the rest
func (n *Notifier) Send(ctx context.Context, d events.Delivery) error {
	if d.Alert.Severity != risk.SeverityCritical {
		return nil
	}
	text, err := FormatAlert(d.Alert)
	if err != nil {
		return err
	}
	return n.sender.SendMessageWithContext(ctx, n.chatID, text)
}

// FormatAlert renders an alert as a plain text chat message
func FormatAlert(a risk.Alert) (string, error) {
	return templates.Get().Render(templates.CriticalAlert, a)
}
