package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/domain/trust"
)

// VelocityWindow is the trailing window for velocity checks
const VelocityWindow = time.Hour

// HistoryProvider summarizes a user's completed orders
type HistoryProvider interface {
	History(ctx context.Context, userID uuid.UUID) (*order.History, error)
}

// TrustProvider returns a user's trust record, provisioning it if needed
type TrustProvider interface {
	Get(ctx context.Context, userID uuid.UUID) (*trust.Score, error)
}

// ScoreInput is one checkout attempt to score
type ScoreInput struct {
	UserID      uuid.UUID
	Features    session.FeatureVector
	KnownDevice bool
	CartTotal   decimal.Decimal
	Now         time.Time
}

// Outcome is a scored attempt plus the context it was scored against
type Outcome struct {
	Result     *fraud.Result
	Facts      Facts
	TrustScore int
	Suspended  bool
	Degraded   []string
}

// Scorer gathers scoring context and runs the engine
type Scorer struct {
	engine     *Engine
	velocity   fraud.VelocityTracker
	history    HistoryProvider
	trust      TrustProvider
	thresholds fraud.Thresholds
	logger     *zap.Logger
}

// NewScorer creates a scorer
func NewScorer(engine *Engine, velocity fraud.VelocityTracker, history HistoryProvider, trust TrustProvider, thresholds fraud.Thresholds, logger *zap.Logger) *Scorer {
	return &Scorer{
		engine:     engine,
		velocity:   velocity,
		history:    history,
		trust:      trust,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Score evaluates in. Velocity is the only optional input: when the tracker
// fails the velocity checks are skipped and the outcome is marked degraded.
func (s *Scorer) Score(ctx context.Context, in ScoreInput) (*Outcome, error) {
	if in.UserID == uuid.Nil {
		return nil, fraud.ErrMissingUser
	}
	if in.CartTotal.IsNegative() {
		return nil, fraud.ErrInvalidAmount
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	var (
		rules   fraud.RuleSet
		history *order.History
		score   *trust.Score
		facts   = Facts{Features: in.Features, KnownDevice: in.KnownDevice, CartTotal: in.CartTotal}
		velErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rules, err = s.engine.Rules(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.history.History(gctx, in.UserID)
		if err != nil {
			return fmt.Errorf("failed to load order history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		score, err = s.trust.Get(gctx, in.UserID)
		if err != nil {
			return fmt.Errorf("failed to load trust score: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		facts.TxLastHour, facts.AmountLastHour, velErr = s.velocity.Window(gctx, in.UserID, VelocityWindow, in.Now)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Join(fraud.ErrScoringFailed, err)
	}

	out := &Outcome{Facts: facts, TrustScore: score.Score, Suspended: score.Suspended}
	if velErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("velocity unavailable, scoring without it",
			zap.String("user_id", in.UserID.String()), zap.Error(velErr))
		out.Degraded = append(out.Degraded, "velocity_unavailable")
	} else {
		out.Facts.VelocityKnown = true
	}
	if in.Features.LowConfidence {
		out.Degraded = append(out.Degraded, "low_confidence_telemetry")
	}

	out.Facts.CompletedOrders = history.CompletedOrders
	out.Facts.AverageOrderValue = history.AverageOrderValue

	flags := Evaluate(rules, out.Facts)
	out.Result = fraud.Aggregate(flags, score.Score, s.thresholds)
	if !score.AllowsAutoApproval() && out.Result.Recommendation == fraud.RecommendApprove {
		out.Result.Recommendation = fraud.RecommendReview
	}
	return out, nil
}
