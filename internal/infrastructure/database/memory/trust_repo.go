package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"checkout-fraud-engine/internal/domain/trust"
)

// TrustRepository implements trust.Repository
type TrustRepository struct {
	mu      sync.Mutex
	scores  map[uuid.UUID]*trust.Score
	entries map[string]*trust.LedgerEntry
}

func NewTrustRepository() *TrustRepository {
	return &TrustRepository{
		scores:  make(map[uuid.UUID]*trust.Score),
		entries: make(map[string]*trust.LedgerEntry),
	}
}

func (r *TrustRepository) Get(ctx context.Context, userID uuid.UUID) (*trust.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scores[userID]
	if !ok {
		return nil, trust.ErrScoreNotFound
	}
	c := *s
	return &c, nil
}

func (r *TrustRepository) Create(ctx context.Context, score *trust.Score) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scores[score.UserID]; ok {
		return trust.ErrScoreExists
	}
	c := *score
	r.scores[score.UserID] = &c
	return nil
}

func (r *TrustRepository) Apply(ctx context.Context, score *trust.Score, expectedVersion int, entry *trust.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[entry.Key]; dup {
		return trust.ErrDuplicateMutation
	}
	stored, ok := r.scores[score.UserID]
	if !ok {
		return trust.ErrScoreNotFound
	}
	if stored.Version != expectedVersion {
		return trust.ErrVersionConflict
	}
	c := *score
	r.scores[score.UserID] = &c
	e := *entry
	r.entries[entry.Key] = &e
	return nil
}

// Entries returns the ledger entries applied for a user
func (r *TrustRepository) Entries(userID uuid.UUID) []trust.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trust.LedgerEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out
}
