package events

import (
	"encoding/json"
	"strings"

	"leverguard/internal/domain/risk"
	"leverguard/pkg/errors"
)

// MessageTypeRiskAlert tags alert envelopes on every transport
const MessageTypeRiskAlert = "risk_alert"

// Message is the envelope every subscriber receives
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Delivery is one alert handed to a sink, already serialized
type Delivery struct {
	Alert   risk.Alert
	Payload []byte
}

// EncodeAlert serializes the alert envelope. Free text is scrubbed of invalid
// UTF-8 since narratives come from external services.
func EncodeAlert(alert risk.Alert) ([]byte, error) {
	alert.Message = sanitizeUTF8(alert.Message)
	alert.Narrative = sanitizeUTF8(alert.Narrative)

	data, err := json.Marshal(Message{Type: MessageTypeRiskAlert, Data: alert})
	if err != nil {
		return nil, errors.Wrapf(err, "marshal alert %s", alert.ID)
	}
	return data, nil
}

func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
