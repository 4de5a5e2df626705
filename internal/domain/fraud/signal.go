package fraud

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SignalType categorizes a detected anomaly
type SignalType string

const (
	SignalVelocity         SignalType = "velocity"
	SignalBehavioral       SignalType = "behavioral"
	SignalDevice           SignalType = "device"
	SignalAmount           SignalType = "amount"
	SignalFirstTransaction SignalType = "first_transaction"
)

// Severity indicates how serious a signal is
type Severity string

const (
	SeverityInformational Severity = "informational"
	SeverityWarning       Severity = "warning"
	SeverityCritical      Severity = "critical"
)

// Rank orders severities for the review queue, most severe first
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// LedgerPenalty is the trust score drop applied when a signal of this severity is confirmed
func (s Severity) LedgerPenalty() int {
	switch s {
	case SeverityCritical:
		return 40
	case SeverityWarning:
		return 15
	default:
		return 5
	}
}

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	return s == SeverityInformational || s == SeverityWarning || s == SeverityCritical
}

// ResolutionStatus is the review state of a signal
type ResolutionStatus string

const (
	StatusOpen          ResolutionStatus = "open"
	StatusConfirmed     ResolutionStatus = "confirmed"
	StatusFalsePositive ResolutionStatus = "false_positive"
)

// Decision is a reviewer's verdict on a signal
type Decision string

const (
	DecisionConfirmed     Decision = "confirmed"
	DecisionFalsePositive Decision = "false_positive"
)

// Valid reports whether d is a known reviewer decision
func (d Decision) Valid() bool {
	return d == DecisionConfirmed || d == DecisionFalsePositive
}

// Signal is one detected anomaly raised during an assessment.
// Signals are created by scoring and mutated only by the review workbench.
type Signal struct {
	ID               uuid.UUID        `json:"id"`
	SessionID        uuid.UUID        `json:"session_id"`
	UserID           uuid.UUID        `json:"user_id"`
	Type             SignalType       `json:"signal_type"`
	Severity         Severity         `json:"severity"`
	RuleKey          string           `json:"rule_key"`
	RuleVersion      int              `json:"rule_version"`
	Weight           int              `json:"weight"`
	RawEvidence      json.RawMessage  `json:"raw_evidence,omitempty"`
	ResolutionStatus ResolutionStatus `json:"resolution_status"`
	ResolvedBy       *string          `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	Version          int              `json:"version"`
	CreatedAt        time.Time        `json:"created_at"`
}

// NewSignal creates an open signal from a triggered flag
func NewSignal(sessionID, userID uuid.UUID, flag Flag, at time.Time) *Signal {
	evidence, _ := json.Marshal(flag.Evidence())
	return &Signal{
		ID:               uuid.New(),
		SessionID:        sessionID,
		UserID:           userID,
		Type:             flag.Type(),
		Severity:         flag.Severity(),
		RuleKey:          flag.RuleKey(),
		RuleVersion:      flag.RuleVersion(),
		Weight:           flag.Weight(),
		RawEvidence:      evidence,
		ResolutionStatus: StatusOpen,
		Version:          1,
		CreatedAt:        at,
	}
}

// IsOpen reports whether the signal still awaits review
func (s *Signal) IsOpen() bool {
	return s.ResolutionStatus == StatusOpen
}

// Resolve transitions an open signal to its final status.
// The version is bumped so that stores can apply the change conditionally.
func (s *Signal) Resolve(decision Decision, reviewerID string, at time.Time) error {
	if !decision.Valid() {
		return ErrInvalidDecision
	}
	if !s.IsOpen() {
		return ErrDuplicateResolution
	}
	s.ResolutionStatus = ResolutionStatus(decision)
	s.ResolvedBy = &reviewerID
	s.ResolvedAt = &at
	s.Version++
	return nil
}

// ReviewDecision is the immutable audit record of a resolution
type ReviewDecision struct {
	ID         uuid.UUID `json:"id"`
	SignalID   uuid.UUID `json:"signal_id"`
	ReviewerID string    `json:"reviewer_id"`
	Decision   Decision  `json:"decision"`
	DecidedAt  time.Time `json:"decided_at"`
}

// NewReviewDecision records a reviewer verdict for a resolved signal
func NewReviewDecision(signal *Signal, decision Decision, reviewerID string, at time.Time) *ReviewDecision {
	return &ReviewDecision{
		ID:         uuid.New(),
		SignalID:   signal.ID,
		ReviewerID: reviewerID,
		Decision:   decision,
		DecidedAt:  at,
	}
}
