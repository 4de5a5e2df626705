package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-fraud-engine/internal/domain/session"
)

func ptr[T any](v T) *T { return &v }

func TestNewSession(t *testing.T) {
	now := time.Now()
	s := session.NewSession(uuid.New(), uuid.New(), "abc", true, now, 0)

	assert.Equal(t, session.StatusActive, s.Status)
	assert.Equal(t, now.Add(session.DefaultTTL), s.ExpiresAt)
	assert.True(t, s.IsActive(now))
	assert.False(t, s.IsActive(now.Add(session.DefaultTTL)))
}

func TestSession_RecordMerges(t *testing.T) {
	now := time.Now()
	s := session.NewSession(uuid.New(), uuid.Nil, "", false, now, time.Minute)

	require.NoError(t, s.Record(session.Telemetry{
		Pointer:     []session.PointerSample{{X: 1, Y: 1, T: 10}},
		Keystrokes:  []int64{100},
		StartedAtMs: ptr(int64(1000)),
	}, now))
	require.NoError(t, s.Record(session.Telemetry{
		Pointer:           []session.PointerSample{{X: 2, Y: 3, T: 20}},
		Keystrokes:        []int64{250},
		StartedAtMs:       ptr(int64(5000)),
		SubmittedAtMs:     ptr(int64(9000)),
		HeadlessSuspected: ptr(false),
	}, now))

	assert.Len(t, s.Telemetry.Pointer, 2)
	assert.Equal(t, []int64{100, 250}, s.Telemetry.Keystrokes)
	assert.Equal(t, int64(1000), *s.Telemetry.StartedAtMs)
	assert.Equal(t, int64(9000), *s.Telemetry.SubmittedAtMs)
	assert.False(t, *s.Telemetry.HeadlessSuspected)
	assert.Nil(t, s.Telemetry.CookiesEnabled)
}

func TestSession_RecordAfterExpiry(t *testing.T) {
	now := time.Now()
	s := session.NewSession(uuid.New(), uuid.Nil, "", false, now, time.Minute)

	err := s.Record(session.Telemetry{Keystrokes: []int64{1}}, now.Add(2*time.Minute))

	assert.ErrorIs(t, err, session.ErrSessionClosed)
	assert.Empty(t, s.Telemetry.Keystrokes)
}

func TestSession_Close(t *testing.T) {
	now := time.Now()
	s := session.NewSession(uuid.New(), uuid.Nil, "", false, now, time.Minute)

	assert.ErrorIs(t, s.Close(session.StatusActive, now), session.ErrInvalidStatus)

	require.NoError(t, s.Close(session.StatusCompleted, now))
	assert.Equal(t, session.StatusCompleted, s.Status)
	require.NotNil(t, s.ClosedAt)

	assert.ErrorIs(t, s.Close(session.StatusExpired, now), session.ErrSessionClosed)
	assert.ErrorIs(t, s.Record(session.Telemetry{}, now), session.ErrSessionClosed)
}
