package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestPublish_KeysBySession(t *testing.T) {
	w := &recordingWriter{}
	p := &kafkaQueryProducer{writer: w, topic: "query_events"}

	err := p.Publish(context.Background(),
		model.QueryEvent{ID: "1", SessionID: "s1", Question: "total units", Timestamp: time.Unix(0, 0).UTC()},
		model.QueryEvent{ID: "2", SessionID: "s2", Question: "by region"},
	)
	require.NoError(t, err)
	require.Len(t, w.messages, 2)
	assert.Equal(t, "s1", string(w.messages[0].Key))

	event, err := DecodeQueryEvent(w.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "total units", event.Question)
}

func TestPublish_PropagatesWriteError(t *testing.T) {
	p := &kafkaQueryProducer{writer: &recordingWriter{err: errors.New("broker down")}}
	assert.Error(t, p.Publish(context.Background(), model.QueryEvent{ID: "1"}))
	assert.NoError(t, p.Publish(context.Background()))
}

func TestNewQueryProducer_Disabled(t *testing.T) {
	p, err := NewQueryProducer(fxtest.NewLifecycle(t), &config.Config{})
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), model.QueryEvent{ID: "1"}))
}

func TestNewQueryProducer_MissingTopic(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	_, err := NewQueryProducer(fxtest.NewLifecycle(t), cfg)
	assert.Error(t, err)
}

func TestDecodeQueryEvent_Invalid(t *testing.T) {
	_, err := DecodeQueryEvent([]byte("not json"))
	assert.Error(t, err)
}
