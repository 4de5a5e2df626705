package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignalRepository manages fraud signals and their review audit trail
type SignalRepository interface {
	// Create appends new signals; safe under arbitrary concurrency
	Create(ctx context.Context, signals ...*Signal) error

	// GetByID retrieves a signal by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Signal, error)

	// ListOpen returns open signals ordered by severity then newest first
	ListOpen(ctx context.Context, limit, offset int) ([]*Signal, error)

	// CountOpenWarningsByUser counts unresolved signals of warning severity
	// or above. Informational signals are kept for rule tuning and do not
	// hold back trust.
	CountOpenWarningsByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Resolve stores the resolved signal only if the stored version is
	// expectedVersion and the signal is still open, and appends the decision
	// in the same unit of work. A lost race yields ErrDuplicateResolution.
	Resolve(ctx context.Context, signal *Signal, expectedVersion int, decision *ReviewDecision) error

	// GetDecision returns the review decision for a resolved signal
	GetDecision(ctx context.Context, signalID uuid.UUID) (*ReviewDecision, error)

	// RuleStats aggregates resolved signal outcomes for a rule key
	RuleStats(ctx context.Context, ruleKey string) (*RuleStats, error)
}

// RuleRepository manages detection rules
type RuleRepository interface {
	// List returns all rules, active or not
	List(ctx context.Context) ([]DetectionRule, error)

	// GetByKey retrieves a rule by key
	GetByKey(ctx context.Context, key string) (*DetectionRule, error)

	// Upsert creates or replaces a rule, bumping its version
	Upsert(ctx context.Context, rule *DetectionRule) error
}

// VelocityTracker keeps a rolling record of checkout attempts per user
type VelocityTracker interface {
	// Record adds an attempt to the user's window
	Record(ctx context.Context, userID uuid.UUID, attemptID uuid.UUID, amount decimal.Decimal, at time.Time) error

	// Window returns the count and sum of attempts in [now-window, now]
	Window(ctx context.Context, userID uuid.UUID, window time.Duration, now time.Time) (int64, decimal.Decimal, error)
}

// AlertPublisher emits signal lifecycle events to downstream consumers
type AlertPublisher interface {
	PublishCreated(ctx context.Context, signals []*Signal) error
	PublishResolved(ctx context.Context, signal *Signal, decision *ReviewDecision) error
}
