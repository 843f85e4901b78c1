package risk

import (
	"context"
	"time"
)

// Alert is an immutable risk notification about one position
type Alert struct {
	ID         string    `json:"id"`
	PositionID string    `json:"positionId"`
	Kind       AlertKind `json:"kind"`
	Severity   Severity  `json:"type"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Narrative  string    `json:"aiAnalysis,omitempty"`
}

// Severity defines alert severity
type Severity string

const (
	SeverityWarning     Severity = "warning"
	SeverityCritical    Severity = "critical"
	SeverityLiquidation Severity = "liquidation"
)

// Valid checks if severity is valid
func (s Severity) Valid() bool {
	switch s {
	case SeverityWarning, SeverityCritical, SeverityLiquidation:
		return true
	}
	return false
}

// String returns string representation
func (s Severity) String() string {
	return string(s)
}

// AlertKind distinguishes score-driven alerts from mitigation reports
type AlertKind string

const (
	AlertKindRisk       AlertKind = "risk"
	AlertKindMitigation AlertKind = "mitigation"
)

// AlertRepository retains emitted alerts
type AlertRepository interface {
	Append(alert Alert)
	Recent(limit int) []Alert
}

// Publisher fans an alert out to live subscribers.
// Delivery is best effort; Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, alert Alert)
}

// NarrativeRequest is what the narrative collaborator is asked about
type NarrativeRequest struct {
	PositionID string
	Prompt     string
}

// Narrator produces an advisory text explanation of a position's risk
type Narrator interface {
	Narrate(ctx context.Context, req NarrativeRequest) (string, error)
}
