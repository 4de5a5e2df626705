package trust

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// maxAttempts bounds the optimistic read-modify-write loop: one try plus one retry
const maxAttempts = 2

// Ledger applies trust mutations one user at a time.
// Each mutation is a conditional write on the record version plus an
// idempotency entry, so concurrent or replayed events apply exactly once.
type Ledger struct {
	repo    Repository
	signals OpenSignalCounter
	now     func() time.Time
}

// NewLedger creates a trust ledger
func NewLedger(repo Repository, signals OpenSignalCounter) *Ledger {
	return &Ledger{
		repo:    repo,
		signals: signals,
		now:     time.Now,
	}
}

// Get returns the user's record, provisioning the default on first sight
func (l *Ledger) Get(ctx context.Context, userID uuid.UUID) (*Score, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUser
	}

	score, err := l.repo.Get(ctx, userID)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, ErrScoreNotFound) {
		return nil, fmt.Errorf("failed to load trust score: %w", err)
	}

	score = NewScore(userID, l.now())
	if err := l.repo.Create(ctx, score); err != nil {
		if errors.Is(err, ErrScoreExists) {
			return l.repo.Get(ctx, userID)
		}
		return nil, fmt.Errorf("failed to provision trust score: %w", err)
	}
	return score, nil
}

// RecordCompletion applies a completed order once per (user, order)
func (l *Ledger) RecordCompletion(ctx context.Context, userID uuid.UUID, orderID string) (*Score, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	var hasOpen bool
	if l.signals != nil {
		open, err := l.signals.CountOpenWarningsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count open signals: %w", err)
		}
		hasOpen = open > 0
	}

	return l.mutate(ctx, userID, CompletionKey(userID, orderID), MutationCompletion, func(s *Score) error {
		s.ApplyCompletion(hasOpen, l.now())
		return nil
	})
}

// RecordResolution applies a reviewed signal once per (user, signal).
// Confirmed signals subtract penalty; false positives leave the score alone.
func (l *Ledger) RecordResolution(ctx context.Context, userID, signalID uuid.UUID, confirmed bool, penalty int) (*Score, error) {
	return l.mutate(ctx, userID, ResolutionKey(userID, signalID), MutationResolution, func(s *Score) error {
		if confirmed {
			s.ApplyConfirmedSignal(penalty, l.now())
		} else {
			s.ApplyFalsePositive(l.now())
		}
		return nil
	})
}

// Reinstate lifts a suspension after manual review
func (l *Ledger) Reinstate(ctx context.Context, userID uuid.UUID) (*Score, error) {
	current, err := l.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := "reinstate:" + userID.String() + ":" + strconv.Itoa(current.Version)
	return l.mutate(ctx, userID, key, MutationReinstate, func(s *Score) error {
		return s.Reinstate(l.now())
	})
}

func (l *Ledger) mutate(ctx context.Context, userID uuid.UUID, key string, kind MutationKind, apply func(*Score) error) (*Score, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := l.Get(ctx, userID)
		if err != nil {
			return nil, err
		}

		next := *current
		if err := apply(&next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		entry := &LedgerEntry{
			Key:        key,
			UserID:     userID,
			Kind:       kind,
			ScoreAfter: next.Score,
			Delta:      next.Score - current.Score,
			AppliedAt:  next.LastUpdatedAt,
		}

		err = l.repo.Apply(ctx, &next, current.Version, entry)
		switch {
		case err == nil:
			return &next, nil
		case errors.Is(err, ErrDuplicateMutation):
			return l.repo.Get(ctx, userID)
		case errors.Is(err, ErrVersionConflict):
			continue
		default:
			return nil, fmt.Errorf("failed to apply trust mutation: %w", err)
		}
	}
	return nil, ErrLedgerConflict
}
