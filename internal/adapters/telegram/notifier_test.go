package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leverguard/internal/domain/risk"
	"leverguard/internal/events"
	"leverguard/pkg/logger"
)

// fakeTelegram answers getMe and records sendMessage calls
type fakeTelegram struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = r.ParseForm()

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 1, "is_bot": true, "first_name": "LeverGuard", "username": "leverguard_bot"},
		})
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sent = append(f.sent, map[string]string{
			"chat_id": r.PostForm.Get("chat_id"),
			"text":    r.PostForm.Get("text"),
		})
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 7,
				"date":       1700000000,
				"chat":       map[string]any{"id": 42, "type": "private"},
				"text":       r.PostForm.Get("text"),
			},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func (f *fakeTelegram) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func newTestBot(t *testing.T, fake *fakeTelegram) *Bot {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	bot, err := NewBot(Config{Token: "123:abc", Endpoint: srv.URL + "/bot%s/%s"}, logger.New(zap.NewNop()))
	require.NoError(t, err)
	return bot
}

func criticalAlert() risk.Alert {
	return risk.Alert{
		ID:         "alert_01J",
		PositionID: "pos_1",
		Kind:       risk.AlertKindRisk,
		Severity:   risk.SeverityCritical,
		Message:    "CRITICAL: Position at high risk of liquidation! Risk score: 93.9%",
		Timestamp:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Narrative:  "Price is below the liquidation level.",
	}
}

func TestNotifier_SendsCriticalAlerts(t *testing.T) {
	fake := &fakeTelegram{}
	notifier := NewNotifier(newTestBot(t, fake), 42)

	require.NoError(t, notifier.Send(context.Background(), events.Delivery{Alert: criticalAlert()}))

	sent := fake.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0]["chat_id"])
	assert.Contains(t, sent[0]["text"], "Risk score: 93.9%")
	assert.Contains(t, sent[0]["text"], "Position: pos_1")
	assert.Contains(t, sent[0]["text"], "Price is below the liquidation level.")
}

func TestNotifier_IgnoresNonCritical(t *testing.T) {
	fake := &fakeTelegram{}
	notifier := NewNotifier(newTestBot(t, fake), 42)

	warning := criticalAlert()
	warning.Severity = risk.SeverityWarning
	require.NoError(t, notifier.Send(context.Background(), events.Delivery{Alert: warning}))

	assert.Empty(t, fake.messages())
}

func TestNewBot_RequiresToken(t *testing.T) {
	_, err := NewBot(Config{}, logger.New(zap.NewNop()))
	assert.Error(t, err)
}

func TestFormatAlert_WithoutNarrative(t *testing.T) {
	a := criticalAlert()
	a.Narrative = ""

	text, err := FormatAlert(a)
	require.NoError(t, err)
	assert.Equal(t,
		"🚨 CRITICAL: Position at high risk of liquidation! Risk score: 93.9%\nPosition: pos_1\nTime: 2025-03-01 12:00:00 UTC",
		text,
	)
}
