package assess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"checkout-fraud-engine/internal/application/collect"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/infrastructure/rules"
	"checkout-fraud-engine/internal/pkg/metrics"
)

// BatchConcurrency bounds how many batch items are scored at once
const BatchConcurrency = 16

// Degraded reasons
const (
	ReasonTimeout = "timeout"
	ReasonError   = "error"
)

// Input is one checkout attempt
type Input struct {
	UserID           uuid.UUID
	SessionID        *uuid.UUID
	Telemetry        *session.Telemetry
	DeviceAttributes map[string]string
	CartTotal        decimal.Decimal
	Currency         string
}

// Assessment is the gate's answer for one attempt
type Assessment struct {
	ID              uuid.UUID            `json:"assessment_id"`
	UserID          uuid.UUID            `json:"user_id"`
	SessionID       uuid.UUID            `json:"session_id"`
	RiskScore       int                  `json:"risk_score"`
	Recommendation  fraud.Recommendation `json:"recommendation"`
	Reasons         []fraud.SignalType   `json:"reasons"`
	Degraded        bool                 `json:"degraded"`
	DegradedReasons []string             `json:"degraded_reasons,omitempty"`
	SignalIDs       []uuid.UUID          `json:"signal_ids,omitempty"`
	LatencyMs       int64                `json:"latency_ms"`
	AssessedAt      time.Time            `json:"assessed_at"`
}

// Scorer is the scoring engine as the gate sees it
type Scorer interface {
	Score(ctx context.Context, in rules.ScoreInput) (*rules.Outcome, error)
}

// Gate is the synchronous decision point checkout calls before payment.
// It answers within the scoring timeout; when scoring cannot finish it
// fails open to review, never to approve or block.
type Gate struct {
	collector  *collect.Collector
	scorer     Scorer
	signals    fraud.SignalRepository
	velocity   fraud.VelocityTracker
	publisher  fraud.AlertPublisher
	audit      *AuditWriter
	thresholds fraud.Thresholds
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewGate creates a decision gate
func NewGate(
	collector *collect.Collector,
	scorer Scorer,
	signals fraud.SignalRepository,
	velocity fraud.VelocityTracker,
	publisher fraud.AlertPublisher,
	audit *AuditWriter,
	thresholds fraud.Thresholds,
	timeout time.Duration,
	logger *zap.Logger,
) *Gate {
	return &Gate{
		collector:  collector,
		scorer:     scorer,
		signals:    signals,
		velocity:   velocity,
		publisher:  publisher,
		audit:      audit,
		thresholds: thresholds,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

// evaluation is the result of the bounded part of an assessment
type evaluation struct {
	session *session.Session
	isNew   bool
	outcome *rules.Outcome
	signals []*fraud.Signal
}

// Assess scores one checkout attempt
func (g *Gate) Assess(ctx context.Context, in Input) (*Assessment, error) {
	if in.UserID == uuid.Nil {
		return nil, fraud.ErrMissingUser
	}
	if in.CartTotal.IsNegative() {
		return nil, fraud.ErrInvalidAmount
	}

	start := g.now()
	a := &Assessment{
		ID:         uuid.New(),
		UserID:     in.UserID,
		AssessedAt: start,
	}

	sctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		eval *evaluation
		err  error
	}
	done := make(chan result, 1)
	if in.SessionID != nil {
		a.SessionID = *in.SessionID
	}

	go func() {
		eval, err := g.evaluate(sctx, in, start)
		done <- result{eval, err}
	}()

	var eval *evaluation
	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				g.failOpen(a, ReasonTimeout, r.err)
			} else {
				g.failOpen(a, ReasonError, r.err)
			}
			break
		}
		eval = r.eval
		g.apply(a, eval)
	case <-sctx.Done():
		g.failOpen(a, ReasonTimeout, fraud.ErrScoringTimeout)
	}

	a.LatencyMs = time.Since(start).Milliseconds()
	metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	metrics.AssessmentsTotal.WithLabelValues(string(a.Recommendation)).Inc()

	g.record(a, in, eval)
	return a, nil
}

// evaluate does everything that must finish inside the latency budget.
// It may outlive Assess on timeout, so it shares nothing mutable with it.
func (g *Gate) evaluate(ctx context.Context, in Input, at time.Time) (*evaluation, error) {
	eval := &evaluation{}

	if in.SessionID != nil {
		s, err := g.collector.Get(ctx, *in.SessionID)
		switch {
		case err == nil:
			if s.UserID != in.UserID {
				return nil, fmt.Errorf("session %s belongs to another user", s.ID)
			}
			eval.session = s
		case errors.Is(err, session.ErrSessionNotFound):
		default:
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}
	if eval.session == nil {
		s, err := g.collector.Open(ctx, in.UserID, in.DeviceAttributes)
		if err != nil {
			return nil, err
		}
		eval.session = s
		eval.isNew = true
	}
	if in.Telemetry != nil {
		eval.session.Telemetry.Merge(*in.Telemetry)
	}
	outcome, err := g.scorer.Score(ctx, rules.ScoreInput{
		UserID:      in.UserID,
		Features:    g.collector.Features(eval.session),
		KnownDevice: eval.session.KnownDevice,
		CartTotal:   in.CartTotal,
		Now:         at,
	})
	if err != nil {
		return nil, err
	}
	eval.outcome = outcome

	// every triggered flag is stored, approved attempts included, so
	// reviewer outcomes cover rules that fire below the review threshold
	for _, f := range outcome.Result.Flags {
		eval.signals = append(eval.signals, fraud.NewSignal(eval.session.ID, in.UserID, f, at))
	}
	return eval, nil
}

func (g *Gate) apply(a *Assessment, eval *evaluation) {
	res := eval.outcome.Result
	a.SessionID = eval.session.ID
	a.RiskScore = res.Score
	a.Recommendation = res.Recommendation
	a.Reasons = res.Reasons
	if len(eval.outcome.Degraded) > 0 {
		a.Degraded = true
		a.DegradedReasons = eval.outcome.Degraded
		for _, reason := range eval.outcome.Degraded {
			metrics.DegradedTotal.WithLabelValues(reason).Inc()
		}
	}
	for _, s := range eval.signals {
		a.SignalIDs = append(a.SignalIDs, s.ID)
	}
	for _, f := range res.Flags {
		metrics.FlagsTotal.WithLabelValues(string(f.Type()), f.RuleKey()).Inc()
	}
}

func (g *Gate) failOpen(a *Assessment, reason string, err error) {
	a.RiskScore = g.thresholds.Review
	a.Recommendation = fraud.RecommendReview
	a.Reasons = []fraud.SignalType{}
	a.Degraded = true
	a.DegradedReasons = append(a.DegradedReasons, reason)
	metrics.DegradedTotal.WithLabelValues(reason).Inc()
	g.logger.Warn("assessment degraded, failing open to review",
		zap.String("assessment_id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("reason", reason),
		zap.Error(err))
}

// record hands durability work to the audit writer
func (g *Gate) record(a *Assessment, in Input, eval *evaluation) {
	g.audit.Go("velocity", func(ctx context.Context) error {
		return g.velocity.Record(ctx, in.UserID, a.ID, in.CartTotal, a.AssessedAt)
	})

	if eval == nil {
		return
	}

	s := eval.session
	if eval.isNew {
		g.audit.Go("session", func(ctx context.Context) error {
			return g.collector.Persist(ctx, s)
		})
	} else if in.Telemetry != nil {
		batch := *in.Telemetry
		g.audit.Go("session", func(ctx context.Context) error {
			_, err := g.collector.Record(ctx, s.ID, batch)
			if errors.Is(err, session.ErrSessionClosed) {
				return nil
			}
			return err
		})
	}

	if len(eval.signals) > 0 {
		signals := eval.signals
		g.audit.Go("signals", func(ctx context.Context) error {
			if err := g.signals.Create(ctx, signals...); err != nil {
				return err
			}
			return g.publisher.PublishCreated(ctx, signals)
		})
	}

	g.logger.Info("checkout assessed",
		zap.String("assessment_id", a.ID.String()),
		zap.String("user_id", a.UserID.String()),
		zap.String("session_id", a.SessionID.String()),
		zap.Int("risk_score", a.RiskScore),
		zap.String("recommendation", string(a.Recommendation)),
		zap.Int("trust_score", eval.outcome.TrustScore),
		zap.Int("signals", len(eval.signals)),
		zap.Int64("latency_ms", a.LatencyMs))
}

// BatchResult pairs an assessment with the error that prevented it
type BatchResult struct {
	Assessment *Assessment
	Err        error
}

// AssessBatch scores attempts concurrently. Results keep input order and a
// failed item never cancels the others.
func (g *Gate) AssessBatch(ctx context.Context, inputs []Input) []BatchResult {
	results := make([]BatchResult, len(inputs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(BatchConcurrency)
	for i, in := range inputs {
		eg.Go(func() error {
			a, err := g.Assess(egCtx, in)
			results[i] = BatchResult{Assessment: a, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
