package events

import (
	"context"
	"time"

	"leverguard/internal/domain/risk"
	"leverguard/internal/metrics"
	"leverguard/pkg/logger"
)

// DefaultSinkTimeout bounds a single sink delivery
const DefaultSinkTimeout = 5 * time.Second

// Sink is one subscriber transport
type Sink interface {
	Name() string
	Send(ctx context.Context, d Delivery) error
}

var _ risk.Publisher = (*Broadcaster)(nil)

// Broadcaster serializes each alert once and hands it to every sink.
// Sink failures are logged and counted; they never reach the caller.
type Broadcaster struct {
	sinks   []Sink
	timeout time.Duration
	log     *logger.Logger
}

// NewBroadcaster creates a broadcaster over the given sinks
func NewBroadcaster(log *logger.Logger, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		sinks:   sinks,
		timeout: DefaultSinkTimeout,
		log:     log.With("component", "broadcaster"),
	}
}

// WithTimeout overrides the per-sink delivery timeout. Non-positive values are ignored.
func (b *Broadcaster) WithTimeout(d time.Duration) *Broadcaster {
	if d > 0 {
		b.timeout = d
	}
	return b
}

// Sinks returns the configured sink names
func (b *Broadcaster) Sinks() []string {
	names := make([]string, 0, len(b.sinks))
	for _, s := range b.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Publish delivers alert to every sink
func (b *Broadcaster) Publish(ctx context.Context, alert risk.Alert) {
	payload, err := EncodeAlert(alert)
	if err != nil {
		b.log.Errorw("Failed to encode alert", "alert_id", alert.ID, "position_id", alert.PositionID, "error", err)
		return
	}

	d := Delivery{Alert: alert, Payload: payload}
	for _, sink := range b.sinks {
		b.deliver(ctx, sink, d)
	}
}

func (b *Broadcaster) deliver(ctx context.Context, sink Sink, d Delivery) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSinkDelivery(sink.Name(), errPanicked)
			b.log.Errorw("Sink panicked", "sink", sink.Name(), "alert_id", d.Alert.ID, "panic", r)
		}
	}()

	err := sink.Send(ctx, d)
	metrics.RecordSinkDelivery(sink.Name(), err)
	if err != nil {
		b.log.Warnw("Alert delivery failed",
			"sink", sink.Name(),
			"alert_id", d.Alert.ID,
			"position_id", d.Alert.PositionID,
			"error", err,
		)
	}
}
