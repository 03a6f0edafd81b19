package mykafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerNeedsBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	assert.Error(t, err)

	p, err := NewProducer([]string{"localhost:9092"})
	require.NoError(t, err)
	assert.NotNil(t, p.writer)
	assert.NoError(t, p.Close())
}

func TestNilProducerDropsEvents(t *testing.T) {
	var p *Producer
	assert.NoError(t, p.PublishEvent(context.Background(), "order_events", "k", map[string]string{"a": "b"}))
	assert.NoError(t, p.Close())
}

func TestPublishRejectsUnencodableEvents(t *testing.T) {
	var p *Producer
	err := p.PublishEvent(context.Background(), "order_events", "k", make(chan int))
	assert.ErrorContains(t, err, "json.Marshal")
}
