package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type attempt struct {
	id     uuid.UUID
	amount decimal.Decimal
	at     time.Time
}

// VelocityTracker implements fraud.VelocityTracker without redis
type VelocityTracker struct {
	mu        sync.Mutex
	retention time.Duration
	attempts  map[uuid.UUID][]attempt
}

func NewVelocityTracker() *VelocityTracker {
	return &VelocityTracker{retention: 24 * time.Hour, attempts: make(map[uuid.UUID][]attempt)}
}

func (v *VelocityTracker) Record(ctx context.Context, userID, attemptID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, a := range v.attempts[userID] {
		if a.id == attemptID {
			return nil
		}
	}
	cutoff := at.Add(-v.retention)
	kept := v.attempts[userID][:0]
	for _, a := range v.attempts[userID] {
		if !a.at.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	v.attempts[userID] = append(kept, attempt{id: attemptID, amount: amount, at: at})
	return nil
}

func (v *VelocityTracker) Window(ctx context.Context, userID uuid.UUID, window time.Duration, now time.Time) (int64, decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	from := now.Add(-window)
	sum := decimal.Zero
	var n int64
	for _, a := range v.attempts[userID] {
		if !a.at.Before(from) && !a.at.After(now) {
			n++
			sum = sum.Add(a.amount)
		}
	}
	return n, sum, nil
}
