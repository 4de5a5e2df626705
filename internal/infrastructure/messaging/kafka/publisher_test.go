package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"checkout-fraud-engine/internal/domain/fraud"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testSignal(sev fraud.Severity) *fraud.Signal {
	return &fraud.Signal{
		ID:               uuid.New(),
		SessionID:        uuid.New(),
		UserID:           uuid.New(),
		Type:             fraud.SignalVelocity,
		Severity:         sev,
		RuleKey:          fraud.RuleMaxTxPerHour,
		Weight:           40,
		ResolutionStatus: fraud.StatusOpen,
		Version:          1,
		CreatedAt:        time.Now().UTC(),
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishCreated(t *testing.T) {
	w := &fakeWriter{}
	p := NewAlertPublisher(w, zaptest.NewLogger(t))

	signals := []*fraud.Signal{testSignal(fraud.SeverityWarning), testSignal(fraud.SeverityCritical)}
	require.NoError(t, p.PublishCreated(context.Background(), signals))
	require.Len(t, w.msgs, 2)

	for i, msg := range w.msgs {
		assert.Equal(t, signals[i].UserID.String(), string(msg.Key))
		assert.Equal(t, EventSignalCreated, header(msg, "event_type"))
		assert.Equal(t, string(signals[i].Severity), header(msg, "severity"))

		var evt SignalEvent
		require.NoError(t, json.Unmarshal(msg.Value, &evt))
		assert.Equal(t, EventSignalCreated, evt.EventType)
		assert.Equal(t, signals[i].ID, evt.Signal.ID)
		assert.Nil(t, evt.Decision)
	}
}

func TestPublishCreated_Empty(t *testing.T) {
	w := &fakeWriter{err: errors.New("should not be called")}
	p := NewAlertPublisher(w, zaptest.NewLogger(t))

	assert.NoError(t, p.PublishCreated(context.Background(), nil))
}

func TestPublishResolved(t *testing.T) {
	w := &fakeWriter{}
	p := NewAlertPublisher(w, zaptest.NewLogger(t))

	s := testSignal(fraud.SeverityWarning)
	require.NoError(t, s.Resolve(fraud.DecisionConfirmed, "reviewer-1", time.Now()))
	d := fraud.NewReviewDecision(s, fraud.DecisionConfirmed, "reviewer-1", time.Now())

	require.NoError(t, p.PublishResolved(context.Background(), s, d))
	require.Len(t, w.msgs, 1)

	var evt SignalEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &evt))
	assert.Equal(t, EventSignalResolved, evt.EventType)
	require.NotNil(t, evt.Decision)
	assert.Equal(t, fraud.DecisionConfirmed, evt.Decision.Decision)
	assert.Equal(t, fraud.StatusConfirmed, evt.Signal.ResolutionStatus)
}

func TestPublish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := NewAlertPublisher(w, zaptest.NewLogger(t))

	err := p.PublishCreated(context.Background(), []*fraud.Signal{testSignal(fraud.SeverityWarning)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNoopPublisher(t *testing.T) {
	var p fraud.AlertPublisher = NoopPublisher{}
	assert.NoError(t, p.PublishCreated(context.Background(), []*fraud.Signal{testSignal(fraud.SeverityWarning)}))
	assert.NoError(t, p.PublishResolved(context.Background(), testSignal(fraud.SeverityWarning), nil))
}
