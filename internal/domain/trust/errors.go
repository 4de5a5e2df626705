package trust

import "errors"

var (
	// ErrScoreNotFound is returned by repositories for users without a record
	ErrScoreNotFound = errors.New("trust score not found")

	// ErrScoreExists is returned when provisioning loses a race to another writer
	ErrScoreExists = errors.New("trust score already exists")

	// ErrVersionConflict is returned when a conditional update matched no row
	ErrVersionConflict = errors.New("trust score version conflict")

	// ErrDuplicateMutation is returned when the idempotency key was already applied
	ErrDuplicateMutation = errors.New("ledger mutation already applied")

	// ErrLedgerConflict is the transient error surfaced after the retry budget is spent
	ErrLedgerConflict = errors.New("trust ledger update conflicted, retry later")

	// ErrNotSuspended is returned when reinstating a user who is not suspended
	ErrNotSuspended = errors.New("user is not suspended")

	// ErrInvalidUser is returned for a nil user id
	ErrInvalidUser = errors.New("invalid user id")

	// ErrMissingOrderID is returned when a completion has no order id
	ErrMissingOrderID = errors.New("order id is required")
)
