package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/ports"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/ports/mocks"
)

type fakeWriter struct {
	failures int
	calls    int
	written  []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("leader not available")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func entry() domain.HistoryEntry {
	return domain.NewHistoryEntry(domain.EntityRequest, uuid.New(), uuid.New(), "aprobada", "asignada", "staff-1", "stand A-01 assigned", time.Now())
}

func TestKafkaNotifier_PublishesKeyedByEvent(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w, maxAttempts: 3, backoff: time.Millisecond}
	e := entry()

	require.NoError(t, n.Notify(context.Background(), e))
	require.Len(t, w.written, 1)

	assert.Equal(t, e.EventID.String(), string(w.written[0].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.written[0].Value, &got))
	assert.Equal(t, "asignada", got["estado_nuevo"])
	assert.Equal(t, "solicitud", got["tipo_entidad"])
}

func TestKafkaNotifier_RetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{failures: 2}
	n := &KafkaNotifier{writer: w, maxAttempts: 3, backoff: time.Millisecond}

	assert.NoError(t, n.Notify(context.Background(), entry()))
	assert.Equal(t, 3, w.calls)
}

func TestKafkaNotifier_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: 5}
	n := &KafkaNotifier{writer: w, maxAttempts: 2, backoff: time.Millisecond}

	err := n.Notify(context.Background(), entry())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 2, w.calls)
}

func TestNewKafkaNotifier_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaNotifier(KafkaConfig{Topic: "stand-assignments"})
	assert.Error(t, err)

	_, err = NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestMulti_CallsEveryNotifier(t *testing.T) {
	first := mocks.NewNotifier(t)
	second := mocks.NewNotifier(t)
	e := entry()
	ctx := context.Background()

	first.On("Notify", ctx, e).Return(errors.New("broker down"))
	second.On("Notify", ctx, e).Return(nil)

	m := Multi{first, NewLogNotifier(zerolog.Nop()), second}
	var _ ports.Notifier = m

	err := m.Notify(ctx, e)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
