package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/trust"
	"checkout-fraud-engine/internal/pkg/metrics"
)

const (
	DefaultQueueLimit = 50
	MaxQueueLimit     = 500

	// ProfileOrders is how many recent orders a user profile shows
	ProfileOrders = 20
)

// Resolution is the outcome of a reviewer decision
type Resolution struct {
	Signal     *fraud.Signal         `json:"signal"`
	Decision   *fraud.ReviewDecision `json:"decision"`
	TrustScore *trust.Score          `json:"trust_score"`
}

// SignalDetail is a signal with its review decision, if it has one
type SignalDetail struct {
	Signal   *fraud.Signal         `json:"signal"`
	Decision *fraud.ReviewDecision `json:"decision,omitempty"`
}

// Profile is what a reviewer sees of a user while working a signal
type Profile struct {
	TrustScore   *trust.Score          `json:"trust_score"`
	Devices      []*device.Fingerprint `json:"devices"`
	RecentOrders []*order.Order        `json:"recent_orders"`
}

// Workbench is the reviewer-facing side of the engine: the queue of open
// signals, resolutions that feed the trust ledger, and rule outcome stats.
type Workbench struct {
	signals   fraud.SignalRepository
	ledger    *trust.Ledger
	registry  *device.Registry
	orders    *order.Service
	publisher fraud.AlertPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewWorkbench creates a review workbench
func NewWorkbench(
	signals fraud.SignalRepository,
	ledger *trust.Ledger,
	registry *device.Registry,
	orders *order.Service,
	publisher fraud.AlertPublisher,
	logger *zap.Logger,
) *Workbench {
	return &Workbench{
		signals:   signals,
		ledger:    ledger,
		registry:  registry,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Queue lists open signals, most severe and newest first
func (w *Workbench) Queue(ctx context.Context, limit, offset int) ([]*fraud.Signal, error) {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	if limit > MaxQueueLimit {
		limit = MaxQueueLimit
	}
	if offset < 0 {
		offset = 0
	}
	return w.signals.ListOpen(ctx, limit, offset)
}

// Signal returns one signal by ID along with its review decision
func (w *Workbench) Signal(ctx context.Context, id uuid.UUID) (*SignalDetail, error) {
	signal, err := w.signals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &SignalDetail{Signal: signal}
	if signal.IsOpen() {
		return detail, nil
	}

	decision, err := w.signals.GetDecision(ctx, id)
	switch {
	case err == nil:
		detail.Decision = decision
	case errors.Is(err, fraud.ErrSignalNotFound):
	default:
		return nil, fmt.Errorf("failed to load review decision: %w", err)
	}
	return detail, nil
}

// Resolve records a reviewer decision on an open signal and applies its
// trust consequence. A signal is resolved at most once; repeating the call
// returns ErrDuplicateResolution and never changes the score again.
func (w *Workbench) Resolve(ctx context.Context, signalID uuid.UUID, decision fraud.Decision, reviewerID string) (*Resolution, error) {
	if !decision.Valid() {
		return nil, fraud.ErrInvalidDecision
	}
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, fraud.ErrMissingReviewer
	}

	signal, err := w.signals.GetByID(ctx, signalID)
	if err != nil {
		return nil, err
	}

	if !signal.IsOpen() {
		w.settle(ctx, signal)
		return nil, fraud.ErrDuplicateResolution
	}

	expected := signal.Version
	now := w.now()
	if err := signal.Resolve(decision, reviewerID, now); err != nil {
		return nil, err
	}
	record := fraud.NewReviewDecision(signal, decision, reviewerID, now)

	if err := w.signals.Resolve(ctx, signal, expected, record); err != nil {
		if errors.Is(err, fraud.ErrDuplicateResolution) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store resolution: %w", err)
	}
	metrics.ResolutionsTotal.WithLabelValues(string(decision)).Inc()

	score, err := w.applyLedger(ctx, signal)
	if err != nil {
		return nil, err
	}

	if err := w.publisher.PublishResolved(ctx, signal, record); err != nil {
		w.logger.Warn("failed to publish signal resolution",
			zap.String("signal_id", signal.ID.String()),
			zap.Error(err))
	}

	w.logger.Info("signal resolved",
		zap.String("signal_id", signal.ID.String()),
		zap.String("user_id", signal.UserID.String()),
		zap.String("decision", string(decision)),
		zap.String("reviewer_id", reviewerID),
		zap.Int("trust_score", score.Score),
		zap.Bool("suspended", score.Suspended))

	return &Resolution{Signal: signal, Decision: record, TrustScore: score}, nil
}

// settle re-applies the ledger mutation of an already resolved signal.
// The mutation is keyed by signal, so this only writes if an earlier
// resolution stored the signal but failed before the ledger.
func (w *Workbench) settle(ctx context.Context, signal *fraud.Signal) {
	if _, err := w.applyLedger(ctx, signal); err != nil {
		w.logger.Warn("failed to settle ledger for resolved signal",
			zap.String("signal_id", signal.ID.String()),
			zap.Error(err))
	}
}

func (w *Workbench) applyLedger(ctx context.Context, signal *fraud.Signal) (*trust.Score, error) {
	confirmed := signal.ResolutionStatus == fraud.StatusConfirmed
	score, err := w.ledger.RecordResolution(ctx, signal.UserID, signal.ID, confirmed, signal.Severity.LedgerPenalty())
	if err != nil {
		metrics.LedgerMutationsTotal.WithLabelValues(string(trust.MutationResolution), "error").Inc()
		return nil, fmt.Errorf("failed to apply resolution to trust ledger: %w", err)
	}
	metrics.LedgerMutationsTotal.WithLabelValues(string(trust.MutationResolution), "ok").Inc()
	return score, nil
}

// RuleStats reports reviewer outcomes for one rule
func (w *Workbench) RuleStats(ctx context.Context, ruleKey string) (*fraud.RuleStats, error) {
	return w.signals.RuleStats(ctx, ruleKey)
}

// TrustScore returns a user's trust record
func (w *Workbench) TrustScore(ctx context.Context, userID uuid.UUID) (*trust.Score, error) {
	return w.ledger.Get(ctx, userID)
}

// Profile gathers a user's trust record, known devices and recent orders
func (w *Workbench) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	score, err := w.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	devices, err := w.registry.Devices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	orders, err := w.orders.ListUserOrders(ctx, userID, ProfileOrders, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &Profile{TrustScore: score, Devices: devices, RecentOrders: orders}, nil
}

// Reinstate lifts a user's suspension
func (w *Workbench) Reinstate(ctx context.Context, userID uuid.UUID, reviewerID string) (*trust.Score, error) {
	score, err := w.ledger.Reinstate(ctx, userID)
	if err != nil {
		metrics.LedgerMutationsTotal.WithLabelValues(string(trust.MutationReinstate), "error").Inc()
		return nil, err
	}
	metrics.LedgerMutationsTotal.WithLabelValues(string(trust.MutationReinstate), "ok").Inc()
	w.logger.Info("user reinstated",
		zap.String("user_id", userID.String()),
		zap.String("reviewer_id", reviewerID),
		zap.Int("trust_score", score.Score))
	return score, nil
}
