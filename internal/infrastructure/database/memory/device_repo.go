package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"checkout-fraud-engine/internal/domain/device"
)

type deviceKey struct {
	user uuid.UUID
	hash string
}

// DeviceRepository implements device.Repository
type DeviceRepository struct {
	mu      sync.RWMutex
	devices map[deviceKey]*device.Fingerprint
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{devices: make(map[deviceKey]*device.Fingerprint)}
}

func (r *DeviceRepository) CreateIfAbsent(ctx context.Context, fp *device.Fingerprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := deviceKey{fp.UserID, fp.Hash}
	if _, ok := r.devices[k]; ok {
		return device.ErrFingerprintExists
	}
	c := *fp
	r.devices[k] = &c
	return nil
}

func (r *DeviceRepository) Get(ctx context.Context, userID uuid.UUID, hash string) (*device.Fingerprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fp, ok := r.devices[deviceKey{userID, hash}]
	if !ok {
		return nil, device.ErrFingerprintNotFound
	}
	c := *fp
	return &c, nil
}

func (r *DeviceRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fp := range r.devices {
		if fp.ID == id {
			if at.After(fp.LastSeenAt) {
				fp.LastSeenAt = at
			}
			return nil
		}
	}
	return device.ErrFingerprintNotFound
}

func (r *DeviceRepository) MarkTrusted(ctx context.Context, userID uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp, ok := r.devices[deviceKey{userID, hash}]
	if !ok {
		return device.ErrFingerprintNotFound
	}
	fp.TrustFlag = true
	return nil
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*device.Fingerprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*device.Fingerprint
	for k, fp := range r.devices {
		if k.user == userID {
			c := *fp
			out = append(out, &c)
		}
	}
	return out, nil
}
