package dto

import (
	"time"

	"github.com/google/uuid"

	"checkout-fraud-engine/internal/domain/session"
)

// StartSessionRequest opens a checkout session
type StartSessionRequest struct {
	UserID           string            `json:"user_id" validate:"required,uuid"`
	DeviceAttributes map[string]string `json:"device_attributes" validate:"omitempty,max=64"`
}

// SessionResponse describes a session without its raw telemetry
type SessionResponse struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Status        session.Status `json:"status"`
	KnownDevice   bool           `json:"is_known_device"`
	PointerEvents int            `json:"pointer_events"`
	Keystrokes    int            `json:"keystrokes"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

// NewSessionResponse maps a session
func NewSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		UserID:        s.UserID,
		Status:        s.Status,
		KnownDevice:   s.KnownDevice,
		PointerEvents: len(s.Telemetry.Pointer),
		Keystrokes:    len(s.Telemetry.Keystrokes),
		ExpiresAt:     s.ExpiresAt,
	}
}
