package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockKafkaWriter records written messages without a broker.
type mockKafkaWriter struct {
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (m *mockKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed = true
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats {
	return kafka.WriterStats{}
}

func TestProducer_Publish(t *testing.T) {
	writer := &mockKafkaWriter{}
	p := NewProducerWithWriter(writer, nil)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic: TopicPatternDeployed,
		Key:   []byte("assignee"),
		Value: []byte(`{"pattern_id":"x"}`),
	})
	require.NoError(t, err)

	require.Len(t, writer.written, 1)
	assert.Equal(t, TopicPatternDeployed, writer.written[0].Topic)
	assert.Equal(t, []byte("assignee"), writer.written[0].Key)

	sent, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
}

func TestProducer_PublishValidation(t *testing.T) {
	p := NewProducerWithWriter(&mockKafkaWriter{}, nil)
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, &ProducerMessage{Value: []byte("v")}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t"}))

	big := make([]byte, maxMessageBytes+1)
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t", Value: big}))
}

func TestProducer_PublishWriteFailureCounted(t *testing.T) {
	writer := &mockKafkaWriter{writeErr: assert.AnError}
	p := NewProducerWithWriter(writer, nil)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.Error(t, err)

	sent, failed, _ := p.Metrics()
	assert.Equal(t, int64(0), sent)
	assert.Equal(t, int64(1), failed)
}

func TestProducer_ClosedRejectsPublish(t *testing.T) {
	writer := &mockKafkaWriter{}
	p := NewProducerWithWriter(writer, nil)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.ErrorIs(t, err, ErrProducerClosed)

	// Second close is a no-op.
	assert.NoError(t, p.Close())
}

func TestProducer_PublishEvent(t *testing.T) {
	writer := &mockKafkaWriter{}
	p := NewProducerWithWriter(writer, nil)

	payload := PatternDeployedPayload{
		PatternID:  "1e9f",
		Field:      "assignee",
		Priority:   50,
		DeployedAt: time.Now().UTC(),
	}
	require.NoError(t, p.PublishEvent(context.Background(), TopicPatternDeployed, payload))

	require.Len(t, writer.written, 1)
	msg := writer.written[0]
	assert.Equal(t, TopicPatternDeployed, msg.Topic)

	// Envelope headers travel with the message.
	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, TopicPatternDeployed, headers["event_type"])
	assert.Equal(t, "extraction-engine", headers["source_service"])
	assert.Equal(t, "v1", headers["schema_version"])
}
