package trust

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultScore      = 50
	MinScore          = 0
	MaxScore          = 100
	CompletionReward  = 2
	SuspendFloor      = 10
	RecoveryCleanRuns = 5
)

// Band is the coarse trust tier derived from a score record
type Band string

const (
	BandNew       Band = "new"
	BandBuilding  Band = "building"
	BandTrusted   Band = "trusted"
	BandFlagged   Band = "flagged"
	BandSuspended Band = "suspended"
)

// Score is the per-user trust ledger record.
// Every mutation goes through the Apply* methods so the score stays in [0,100].
type Score struct {
	UserID                       uuid.UUID `json:"user_id"`
	Score                        int       `json:"score"`
	ConsecutiveCleanTransactions int       `json:"consecutive_clean_transactions"`
	TotalConfirmedFraudSignals   int       `json:"total_confirmed_fraud_signals"`
	TotalCompletedOrders         int       `json:"total_completed_orders"`
	Suspended                    bool      `json:"suspended"`
	Version                      int       `json:"version"`
	LastUpdatedAt                time.Time `json:"last_updated_at"`
	CreatedAt                    time.Time `json:"created_at"`
}

// NewScore provisions the default record for a user seen for the first time
func NewScore(userID uuid.UUID, now time.Time) *Score {
	return &Score{
		UserID:        userID,
		Score:         DefaultScore,
		Version:       0,
		LastUpdatedAt: now,
		CreatedAt:     now,
	}
}

// Band derives the trust band from the record
func (s *Score) Band() Band {
	switch {
	case s.Suspended:
		return BandSuspended
	case s.TotalConfirmedFraudSignals > 0 && s.ConsecutiveCleanTransactions < RecoveryCleanRuns:
		return BandFlagged
	case s.Score > 75:
		return BandTrusted
	case s.Score > DefaultScore:
		return BandBuilding
	default:
		return BandNew
	}
}

// AllowsAutoApproval is false once a user is suspended
func (s *Score) AllowsAutoApproval() bool {
	return !s.Suspended
}

// ApplyCompletion rewards a completed order. Users with open signals or a
// suspension get the order counted but no score change.
func (s *Score) ApplyCompletion(hasOpenSignal bool, now time.Time) {
	s.TotalCompletedOrders++
	if !hasOpenSignal && !s.Suspended {
		s.Score += min(CompletionReward, MaxScore-s.Score)
		s.ConsecutiveCleanTransactions++
	}
	s.touch(now)
}

// ApplyConfirmedSignal drops the score by penalty and suspends at the floor
func (s *Score) ApplyConfirmedSignal(penalty int, now time.Time) {
	s.Score = clamp(s.Score - penalty)
	s.ConsecutiveCleanTransactions = 0
	s.TotalConfirmedFraudSignals++
	if s.Score <= SuspendFloor {
		s.Suspended = true
	}
	s.touch(now)
}

// ApplyFalsePositive records a dismissed signal; the score is unchanged
func (s *Score) ApplyFalsePositive(now time.Time) {
	s.touch(now)
}

// Reinstate lifts a suspension. Only reviewers may call this.
func (s *Score) Reinstate(now time.Time) error {
	if !s.Suspended {
		return ErrNotSuspended
	}
	s.Suspended = false
	s.Score = clamp(max(s.Score, SuspendFloor+1))
	s.touch(now)
	return nil
}

func (s *Score) touch(now time.Time) {
	s.LastUpdatedAt = now
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// MutationKind names what caused a ledger mutation
type MutationKind string

const (
	MutationCompletion MutationKind = "completion"
	MutationResolution MutationKind = "resolution"
	MutationReinstate  MutationKind = "reinstatement"
)

// LedgerEntry is the idempotency record written with every applied mutation
type LedgerEntry struct {
	Key        string       `json:"key"`
	UserID     uuid.UUID    `json:"user_id"`
	Kind       MutationKind `json:"kind"`
	ScoreAfter int          `json:"score_after"`
	Delta      int          `json:"delta"`
	AppliedAt  time.Time    `json:"applied_at"`
}

// CompletionKey derives the idempotency key for an order completion
func CompletionKey(userID uuid.UUID, orderID string) string {
	return "completion:" + userID.String() + ":" + orderID
}

// ResolutionKey derives the idempotency key for a signal resolution
func ResolutionKey(userID, signalID uuid.UUID) string {
	return "resolution:" + userID.String() + ":" + signalID.String()
}
