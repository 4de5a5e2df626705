package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists fingerprints with a uniqueness constraint on (user_id, hash)
type Repository interface {
	// CreateIfAbsent inserts fp unless (user, hash) exists, returning
	// ErrFingerprintExists when another writer got there first.
	CreateIfAbsent(ctx context.Context, fp *Fingerprint) error

	// Get retrieves the fingerprint for (user, hash)
	Get(ctx context.Context, userID uuid.UUID, hash string) (*Fingerprint, error)

	// Touch updates last_seen_at
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkTrusted sets trust_flag for (user, hash)
	MarkTrusted(ctx context.Context, userID uuid.UUID, hash string) error

	// ListByUser returns all devices known for a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Fingerprint, error)
}
