package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProducer_WriterPerTopic(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})

	a := p.writer("risk.alerts")
	b := p.writer("risk.alerts")
	c := p.writer("risk.mitigations")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "risk.alerts", a.Topic)
	assert.Equal(t, 10*time.Second, a.WriteTimeout)

	assert.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}
