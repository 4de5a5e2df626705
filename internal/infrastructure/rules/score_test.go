package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/trust"
	"checkout-fraud-engine/internal/infrastructure/database/memory"
)

type historyStub struct {
	history *order.History
	err     error
}

func (h historyStub) History(context.Context, uuid.UUID) (*order.History, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.history, nil
}

type trustStub struct {
	score     int
	suspended bool
}

func (s trustStub) Get(_ context.Context, userID uuid.UUID) (*trust.Score, error) {
	rec := trust.NewScore(userID, time.Now())
	rec.Score = s.score
	rec.Suspended = s.suspended
	return rec, nil
}

type brokenVelocity struct{}

func (brokenVelocity) Record(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, time.Time) error {
	return fraud.ErrVelocityUnknown
}

func (brokenVelocity) Window(context.Context, uuid.UUID, time.Duration, time.Time) (int64, decimal.Decimal, error) {
	return 0, decimal.Zero, fraud.ErrVelocityUnknown
}

var returning = historyStub{history: &order.History{CompletedOrders: 3, AverageOrderValue: decimal.NewFromInt(100)}}

func newTestScorer(t *testing.T, velocity fraud.VelocityTracker, history HistoryProvider, tp TrustProvider) *Scorer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := NewEngine(memory.NewRuleRepository(), time.Minute, logger)
	return NewScorer(engine, velocity, history, tp, fraud.DefaultThresholds(), logger)
}

func TestScore_Scenarios(t *testing.T) {
	now := time.Now()

	t.Run("velocity burst reviews", func(t *testing.T) {
		userID := uuid.New()
		velocity := memory.NewVelocityTracker()
		for i := 0; i < 6; i++ {
			require.NoError(t, velocity.Record(context.Background(), userID, uuid.New(), decimal.NewFromInt(200), now.Add(-time.Duration(i+1)*time.Minute)))
		}
		s := newTestScorer(t, velocity, returning, trustStub{score: 50})

		out, err := s.Score(context.Background(), ScoreInput{
			UserID:      userID,
			Features:    humanFeatures(),
			KnownDevice: true,
			CartTotal:   decimal.RequireFromString("123.45"),
			Now:         now,
		})

		require.NoError(t, err)
		assert.Equal(t, 40, out.Result.Score)
		assert.Equal(t, fraud.RecommendReview, out.Result.Recommendation)
		assert.Equal(t, []fraud.SignalType{fraud.SignalVelocity}, out.Result.Reasons)
		assert.Equal(t, int64(6), out.Facts.TxLastHour)
		assert.True(t, out.Facts.AmountLastHour.Equal(decimal.NewFromInt(1200)))
		assert.Empty(t, out.Degraded)
		require.Len(t, out.Result.Flags, 1)
		assert.Equal(t, 1, out.Result.Flags[0].RuleVersion())
	})

	t.Run("first purchase on known device approves", func(t *testing.T) {
		s := newTestScorer(t, memory.NewVelocityTracker(),
			historyStub{history: &order.History{}}, trustStub{score: 50})

		out, err := s.Score(context.Background(), ScoreInput{
			UserID:      uuid.New(),
			Features:    humanFeatures(),
			KnownDevice: true,
			CartTotal:   decimal.NewFromInt(50),
			Now:         now,
		})

		require.NoError(t, err)
		assert.Equal(t, 15, out.Result.Score)
		assert.Equal(t, fraud.RecommendApprove, out.Result.Recommendation)
		assert.Equal(t, []fraud.SignalType{fraud.SignalFirstTransaction}, out.Result.Reasons)
	})

	t.Run("headless blocks", func(t *testing.T) {
		s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 50})
		features := humanFeatures()
		features.IsHeadlessSuspected = ptr(true)

		out, err := s.Score(context.Background(), ScoreInput{
			UserID:      uuid.New(),
			Features:    features,
			KnownDevice: true,
			CartTotal:   decimal.NewFromInt(600),
			Now:         now,
		})

		require.NoError(t, err)
		assert.Equal(t, 90, out.Result.Score)
		assert.Equal(t, fraud.RecommendBlock, out.Result.Recommendation)
		assert.True(t, out.Result.Critical)
	})

	t.Run("unknown device alone approves", func(t *testing.T) {
		s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 50})

		out, err := s.Score(context.Background(), ScoreInput{
			UserID:      uuid.New(),
			Features:    humanFeatures(),
			KnownDevice: false,
			CartTotal:   decimal.RequireFromString("250.75"),
			Now:         now,
		})

		require.NoError(t, err)
		assert.Equal(t, 25, out.Result.Score)
		assert.Equal(t, fraud.RecommendApprove, out.Result.Recommendation)
	})

	t.Run("trusted user is discounted", func(t *testing.T) {
		s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 90})

		out, err := s.Score(context.Background(), ScoreInput{
			UserID:      uuid.New(),
			Features:    humanFeatures(),
			KnownDevice: false,
			CartTotal:   decimal.RequireFromString("250.75"),
			Now:         now,
		})

		require.NoError(t, err)
		assert.Equal(t, 15, out.Result.Score)
		assert.Equal(t, 90, out.TrustScore)
	})
}

func TestScore_SuspendedNeverApproves(t *testing.T) {
	s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 5, suspended: true})

	out, err := s.Score(context.Background(), ScoreInput{
		UserID:      uuid.New(),
		Features:    humanFeatures(),
		KnownDevice: true,
		CartTotal:   decimal.RequireFromString("42.10"),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, out.Result.Score)
	assert.Equal(t, fraud.RecommendReview, out.Result.Recommendation)
	assert.True(t, out.Suspended)
}

func TestScore_VelocityUnavailableDegrades(t *testing.T) {
	s := newTestScorer(t, brokenVelocity{}, returning, trustStub{score: 50})

	out, err := s.Score(context.Background(), ScoreInput{
		UserID:      uuid.New(),
		Features:    humanFeatures(),
		KnownDevice: true,
		CartTotal:   decimal.RequireFromString("42.10"),
	})

	require.NoError(t, err)
	assert.Contains(t, out.Degraded, "velocity_unavailable")
	assert.False(t, out.Facts.VelocityKnown)
	assert.Equal(t, fraud.RecommendApprove, out.Result.Recommendation)
}

func TestScore_LowConfidenceTelemetry(t *testing.T) {
	s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 50})
	features := humanFeatures()
	features.LowConfidence = true

	out, err := s.Score(context.Background(), ScoreInput{
		UserID:      uuid.New(),
		Features:    features,
		KnownDevice: true,
		CartTotal:   decimal.RequireFromString("42.10"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"low_confidence_telemetry"}, out.Degraded)
}

func TestScore_Errors(t *testing.T) {
	t.Run("missing user", func(t *testing.T) {
		s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 50})
		_, err := s.Score(context.Background(), ScoreInput{CartTotal: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, fraud.ErrMissingUser)
	})

	t.Run("negative amount", func(t *testing.T) {
		s := newTestScorer(t, memory.NewVelocityTracker(), returning, trustStub{score: 50})
		_, err := s.Score(context.Background(), ScoreInput{UserID: uuid.New(), CartTotal: decimal.NewFromInt(-1)})
		assert.ErrorIs(t, err, fraud.ErrInvalidAmount)
	})

	t.Run("history failure", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		s := newTestScorer(t, memory.NewVelocityTracker(), historyStub{err: dbErr}, trustStub{score: 50})
		_, err := s.Score(context.Background(), ScoreInput{UserID: uuid.New(), CartTotal: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, fraud.ErrScoringFailed)
		assert.ErrorIs(t, err, dbErr)
	})
}

type flakyRuleRepo struct {
	*memory.RuleRepository
	fail bool
}

func (r *flakyRuleRepo) List(ctx context.Context) ([]fraud.DetectionRule, error) {
	if r.fail {
		return nil, errors.New("database unavailable")
	}
	return r.RuleRepository.List(ctx)
}

func TestEngine_UpdateRuleInvalidatesSnapshot(t *testing.T) {
	engine := NewEngine(memory.NewRuleRepository(), time.Hour, zaptest.NewLogger(t))
	ctx := context.Background()

	before, err := engine.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, before[fraud.RuleMaxTxPerHour].Weight)

	rule, err := engine.GetRule(ctx, fraud.RuleMaxTxPerHour)
	require.NoError(t, err)
	rule.Weight = 55
	require.NoError(t, engine.UpdateRule(ctx, rule))
	assert.Equal(t, 2, rule.Version)

	after, err := engine.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 55, after[fraud.RuleMaxTxPerHour].Weight)
	// earlier snapshots are not mutated
	assert.Equal(t, 40, before[fraud.RuleMaxTxPerHour].Weight)
}

func TestEngine_UpdateRuleValidates(t *testing.T) {
	engine := NewEngine(memory.NewRuleRepository(), time.Hour, zaptest.NewLogger(t))
	ctx := context.Background()

	rule, err := engine.GetRule(ctx, fraud.RuleHeadlessBrowser)
	require.NoError(t, err)
	rule.Weight = 101

	assert.ErrorIs(t, engine.UpdateRule(ctx, rule), fraud.ErrInvalidWeight)

	stored, err := engine.GetRule(ctx, fraud.RuleHeadlessBrowser)
	require.NoError(t, err)
	assert.Equal(t, 70, stored.Weight)
}

func TestEngine_ServesStaleSnapshotOnRefreshFailure(t *testing.T) {
	repo := &flakyRuleRepo{RuleRepository: memory.NewRuleRepository()}
	engine := NewEngine(repo, time.Nanosecond, zaptest.NewLogger(t))
	ctx := context.Background()

	first, err := engine.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, first, len(fraud.DefaultRules()))

	repo.fail = true
	time.Sleep(time.Millisecond)

	stale, err := engine.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, len(first))
}

func TestEngine_ColdStartFailure(t *testing.T) {
	repo := &flakyRuleRepo{RuleRepository: memory.NewRuleRepository(), fail: true}
	engine := NewEngine(repo, time.Minute, zaptest.NewLogger(t))

	_, err := engine.Rules(context.Background())
	assert.Error(t, err)
}
