package session

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an active session may collect telemetry
const DefaultTTL = 30 * time.Minute

// Status is the lifecycle state of a checkout session
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is a terminal or active state
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusExpired
}

// PointerSample is one pointer position at a client-relative millisecond offset
type PointerSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Telemetry is the raw behavioral data collected from a checkout page
type Telemetry struct {
	Pointer           []PointerSample `json:"pointer,omitempty"`
	Keystrokes        []int64         `json:"keystrokes,omitempty"` // key-down offsets in ms
	StartedAtMs       *int64          `json:"started_at_ms,omitempty"`
	SubmittedAtMs     *int64          `json:"submitted_at_ms,omitempty"`
	HeadlessSuspected *bool           `json:"headless_suspected,omitempty"`
	CookiesEnabled    *bool           `json:"cookies_enabled,omitempty"`
}

// Merge appends a batch. Samples accumulate, scalar indicators take the latest value.
func (t *Telemetry) Merge(batch Telemetry) {
	t.Pointer = append(t.Pointer, batch.Pointer...)
	t.Keystrokes = append(t.Keystrokes, batch.Keystrokes...)
	if batch.StartedAtMs != nil && t.StartedAtMs == nil {
		t.StartedAtMs = batch.StartedAtMs
	}
	if batch.SubmittedAtMs != nil {
		t.SubmittedAtMs = batch.SubmittedAtMs
	}
	if batch.HeadlessSuspected != nil {
		t.HeadlessSuspected = batch.HeadlessSuspected
	}
	if batch.CookiesEnabled != nil {
		t.CookiesEnabled = batch.CookiesEnabled
	}
}

// FeatureVector is what the scoring engine sees of a session.
// A nil field means the input was missing.
type FeatureVector struct {
	PointerMovementVariance *float64 `json:"pointer_movement_variance"`
	KeystrokeIntervalStdDev *float64 `json:"keystroke_interval_stddev"`
	TimeToSubmitMs          *int64   `json:"time_to_submit_ms"`
	IsHeadlessSuspected     *bool    `json:"is_headless_suspected"`
	CookiesEnabled          *bool    `json:"cookies_enabled"`
	FingerprintHash         string   `json:"fingerprint_hash"`
	LowConfidence           bool     `json:"low_confidence"`
}

// Session is one checkout visit
type Session struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	FingerprintID   uuid.UUID  `json:"fingerprint_id"`
	FingerprintHash string     `json:"fingerprint_hash"`
	KnownDevice     bool       `json:"is_known_device"`
	Status          Status     `json:"status"`
	Telemetry       Telemetry  `json:"telemetry"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// NewSession opens an active session
func NewSession(userID, fingerprintID uuid.UUID, hash string, known bool, now time.Time, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Session{
		ID:              uuid.New(),
		UserID:          userID,
		FingerprintID:   fingerprintID,
		FingerprintHash: hash,
		KnownDevice:     known,
		Status:          StatusActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
}

// IsActive reports whether telemetry can still be recorded at now
func (s *Session) IsActive(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.ExpiresAt)
}

// Record appends a telemetry batch to an active session
func (s *Session) Record(batch Telemetry, now time.Time) error {
	if !s.IsActive(now) {
		return ErrSessionClosed
	}
	s.Telemetry.Merge(batch)
	return nil
}

// Close moves the session to a terminal status. Closing twice is an error.
func (s *Session) Close(status Status, now time.Time) error {
	if status != StatusCompleted && status != StatusExpired {
		return ErrInvalidStatus
	}
	if s.Status != StatusActive {
		return ErrSessionClosed
	}
	s.Status = status
	s.ClosedAt = &now
	return nil
}
