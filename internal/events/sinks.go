package events

import (
	"context"

	"leverguard/pkg/errors"
)

var errPanicked = errors.New("sink panicked")

// TopicWriter writes keyed messages to a topic
type TopicWriter interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// KafkaSink writes alerts to a Kafka topic keyed by position id, so
// alerts of one position stay ordered within a partition
type KafkaSink struct {
	writer TopicWriter
	topic  string
}

// NewKafkaSink creates a Kafka sink
func NewKafkaSink(writer TopicWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, d Delivery) error {
	return s.writer.Publish(ctx, s.topic, []byte(d.Alert.PositionID), d.Payload)
}

// ChannelPublisher publishes to a pub/sub channel
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// RedisSink publishes alerts on a Redis pub/sub channel
type RedisSink struct {
	pub     ChannelPublisher
	channel string
}

// NewRedisSink creates a Redis pub/sub sink
func NewRedisSink(pub ChannelPublisher, channel string) *RedisSink {
	return &RedisSink{pub: pub, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

// Send publishes the payload. Zero receivers is not an error.
func (s *RedisSink) Send(ctx context.Context, d Delivery) error {
	if _, err := s.pub.Publish(ctx, s.channel, d.Payload); err != nil {
		return errors.Wrapf(err, "publish to %s", s.channel)
	}
	return nil
}
