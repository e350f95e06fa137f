package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error {
	s.closed = true
	return nil
}

func newTestPublisher(w *stubWriter) *KafkaPublisher {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "tri_tracker_events")
	p.newW = func(string) messageWriter { return w }
	return p
}

func TestKafkaPublisherWritesHeadersAndKey(t *testing.T) {
	w := &stubWriter{}
	p := newTestPublisher(w)

	e, err := New(TypeImportCommitted, "user-1", map[string]int{"committed": 12})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	require.Equal(t, "user-1", string(msg.Key))
	require.Equal(t, "event_type", msg.Headers[0].Key)
	require.Equal(t, TypeImportCommitted, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, e.ID, decoded.ID)
	require.JSONEq(t, `{"committed":12}`, string(decoded.Payload))

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	w := &stubWriter{err: errors.New("broker down")}
	p := newTestPublisher(w)

	require.NotPanics(t, func() {
		Emit(context.Background(), p, TypeCalendarReordered, "user-1", map[string]string{"kind": "within_day"})
	})
	Emit(context.Background(), nil, TypeCalendarReordered, "user-1", nil)
	Emit(context.Background(), NopPublisher{}, TypeCalendarReordered, "user-1", nil)
}
