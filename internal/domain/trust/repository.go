package trust

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists trust scores and their idempotency ledger
type Repository interface {
	// Get retrieves the score for a user or ErrScoreNotFound
	Get(ctx context.Context, userID uuid.UUID) (*Score, error)

	// Create inserts a fresh record or returns ErrScoreExists
	Create(ctx context.Context, score *Score) error

	// Apply writes score only if the stored version equals expectedVersion,
	// bumping the version and inserting entry in the same transaction.
	// Returns ErrVersionConflict or ErrDuplicateMutation without writing.
	Apply(ctx context.Context, score *Score, expectedVersion int, entry *LedgerEntry) error
}

// OpenSignalCounter reports whether a user has unresolved warning or critical fraud signals
type OpenSignalCounter interface {
	CountOpenWarningsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
