package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"checkout-fraud-engine/internal/domain/fraud"
)

// SignalRepository implements fraud.SignalRepository
type SignalRepository struct {
	mu        sync.RWMutex
	signals   map[uuid.UUID]*fraud.Signal
	decisions map[uuid.UUID]*fraud.ReviewDecision
}

func NewSignalRepository() *SignalRepository {
	return &SignalRepository{
		signals:   make(map[uuid.UUID]*fraud.Signal),
		decisions: make(map[uuid.UUID]*fraud.ReviewDecision),
	}
}

func (r *SignalRepository) Create(ctx context.Context, signals ...*fraud.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range signals {
		c := *s
		r.signals[s.ID] = &c
	}
	return nil
}

func (r *SignalRepository) GetByID(ctx context.Context, id uuid.UUID) (*fraud.Signal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signals[id]
	if !ok {
		return nil, fraud.ErrSignalNotFound
	}
	c := *s
	return &c, nil
}

func (r *SignalRepository) ListOpen(ctx context.Context, limit, offset int) ([]*fraud.Signal, error) {
	r.mu.RLock()
	var open []*fraud.Signal
	for _, s := range r.signals {
		if s.IsOpen() {
			c := *s
			open = append(open, &c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(open, func(i, j int) bool {
		ri, rj := open[i].Severity.Rank(), open[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	return page(open, limit, offset), nil
}

func (r *SignalRepository) CountOpenWarningsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.signals {
		if s.UserID == userID && s.IsOpen() && s.Severity != fraud.SeverityInformational {
			n++
		}
	}
	return n, nil
}

func (r *SignalRepository) Resolve(ctx context.Context, signal *fraud.Signal, expectedVersion int, decision *fraud.ReviewDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.signals[signal.ID]
	if !ok {
		return fraud.ErrSignalNotFound
	}
	if !stored.IsOpen() || stored.Version != expectedVersion {
		return fraud.ErrDuplicateResolution
	}
	c := *signal
	r.signals[signal.ID] = &c
	d := *decision
	r.decisions[signal.ID] = &d
	return nil
}

func (r *SignalRepository) GetDecision(ctx context.Context, signalID uuid.UUID) (*fraud.ReviewDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decisions[signalID]
	if !ok {
		return nil, fraud.ErrSignalNotFound
	}
	c := *d
	return &c, nil
}

func (r *SignalRepository) RuleStats(ctx context.Context, ruleKey string) (*fraud.RuleStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &fraud.RuleStats{RuleKey: ruleKey}
	for _, s := range r.signals {
		if s.RuleKey != ruleKey {
			continue
		}
		switch s.ResolutionStatus {
		case fraud.StatusConfirmed:
			stats.Confirmed++
		case fraud.StatusFalsePositive:
			stats.FalsePositives++
		}
	}
	return stats, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
