package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists sessions
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// Update saves telemetry and status changes
	Update(ctx context.Context, s *Session) error

	// ListExpired returns active sessions whose expiry is before now
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Session, error)
}
