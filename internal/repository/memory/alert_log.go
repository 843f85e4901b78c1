package memory

import (
	"sync"

	"leverguard/internal/domain/risk"
)

// DefaultAlertLogSize bounds the alert log when no capacity is configured
const DefaultAlertLogSize = 1000

// Compile-time check
var _ risk.AlertRepository = (*AlertLog)(nil)

// AlertLog is a fixed-capacity ring buffer of alerts.
// Once full, each append overwrites the oldest entry.
type AlertLog struct {
	mu    sync.RWMutex
	buf   []risk.Alert
	next  int
	count int
}

// NewAlertLog creates a log holding at most capacity alerts
func NewAlertLog(capacity int) *AlertLog {
	if capacity <= 0 {
		capacity = DefaultAlertLogSize
	}
	return &AlertLog{buf: make([]risk.Alert, capacity)}
}

// Append records an alert
func (l *AlertLog) Append(alert risk.Alert) {
	l.mu.Lock()
	l.buf[l.next] = alert
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	l.mu.Unlock()
}

// Recent returns up to limit alerts, most recent first
func (l *AlertLog) Recent(limit int) []risk.Alert {
	if limit <= 0 {
		return []risk.Alert{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	n := min(limit, l.count)
	out := make([]risk.Alert, n)
	for i := 0; i < n; i++ {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		out[i] = l.buf[idx]
	}
	return out
}

// Len returns the number of retained alerts
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Cap returns the log capacity
func (l *AlertLog) Cap() int {
	return len(l.buf)
}
