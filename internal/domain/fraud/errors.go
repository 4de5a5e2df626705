package fraud

import "errors"

var (
	// Signal errors
	ErrSignalNotFound      = errors.New("fraud signal not found")
	ErrDuplicateResolution = errors.New("fraud signal is already resolved")
	ErrInvalidDecision     = errors.New("invalid review decision")
	ErrMissingReviewer     = errors.New("reviewer id is required")

	// Rule errors
	ErrRuleNotFound        = errors.New("detection rule not found")
	ErrInvalidComparator   = errors.New("invalid rule comparator")
	ErrInvalidRuleSeverity = errors.New("invalid rule severity")
	ErrInvalidWeight       = errors.New("rule weight must be between 0 and 100")
	ErrRuleConfigInvalid   = errors.New("rule configuration is invalid")

	// Scoring errors
	ErrMissingUser     = errors.New("user id is required")
	ErrInvalidAmount   = errors.New("cart total must be positive")
	ErrScoringTimeout  = errors.New("fraud scoring timed out")
	ErrScoringFailed   = errors.New("fraud scoring failed")
	ErrVelocityUnknown = errors.New("velocity data unavailable")
)
