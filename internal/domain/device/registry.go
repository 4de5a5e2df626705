package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolution is the outcome of matching a device for a user
type Resolution struct {
	FingerprintID uuid.UUID `json:"fingerprint_id"`
	Hash          string    `json:"fingerprint_hash"`
	Known         bool      `json:"is_known_device"`
	Trusted       bool      `json:"trusted"`
	Complete      bool      `json:"complete"`
}

// Registry matches device fingerprints per user.
// Concurrent first sightings rely on the store's uniqueness constraint;
// the losing writer re-reads the winning row.
type Registry struct {
	repo Repository
	now  func() time.Time
}

// NewRegistry creates a fingerprint registry
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, now: time.Now}
}

// Resolve hashes raw attributes and reports whether the device was seen before
func (r *Registry) Resolve(ctx context.Context, userID uuid.UUID, raw map[string]string) (*Resolution, error) {
	if len(raw) == 0 {
		return nil, ErrNoAttributes
	}
	return r.ResolveHash(ctx, userID, Hash(raw), Complete(raw))
}

// ResolveHash is Resolve for a client that already sent the hash
func (r *Registry) ResolveHash(ctx context.Context, userID uuid.UUID, hash string, complete bool) (*Resolution, error) {
	now := r.now()

	existing, err := r.repo.Get(ctx, userID, hash)
	switch {
	case err == nil:
		if err := r.repo.Touch(ctx, existing.ID, now); err != nil {
			return nil, fmt.Errorf("failed to touch fingerprint: %w", err)
		}
		return &Resolution{FingerprintID: existing.ID, Hash: hash, Known: true, Trusted: existing.TrustFlag, Complete: complete}, nil
	case !errors.Is(err, ErrFingerprintNotFound):
		return nil, fmt.Errorf("failed to look up fingerprint: %w", err)
	}

	fp := NewFingerprint(userID, hash, now)
	if err := r.repo.CreateIfAbsent(ctx, fp); err != nil {
		if !errors.Is(err, ErrFingerprintExists) {
			return nil, fmt.Errorf("failed to register fingerprint: %w", err)
		}
		winner, err := r.repo.Get(ctx, userID, hash)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read fingerprint: %w", err)
		}
		fp = winner
	}
	return &Resolution{FingerprintID: fp.ID, Hash: hash, Known: false, Trusted: fp.TrustFlag, Complete: complete}, nil
}

// MarkTrusted flags a device after an order completed on it
func (r *Registry) MarkTrusted(ctx context.Context, userID uuid.UUID, hash string) error {
	return r.repo.MarkTrusted(ctx, userID, hash)
}

// Devices lists a user's known devices
func (r *Registry) Devices(ctx context.Context, userID uuid.UUID) ([]*Fingerprint, error) {
	return r.repo.ListByUser(ctx, userID)
}
