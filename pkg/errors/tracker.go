package errors

import (
	"context"
)

// Tracker reports errors to an external tracking service (Sentry or no-op)
type Tracker interface {
	// CaptureError sends an error with tags such as component or position_id
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// CaptureMessage sends a plain message at the given level
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// Flush waits for pending events to be sent
	Flush(ctx context.Context) error
}

// Level represents the severity level of a tracked message
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// String returns the string representation of the level
func (l Level) String() string {
	return string(l)
}
