package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-fraud-engine/internal/domain/fraud"
)

func newSignal(sev fraud.Severity, ruleKey string, at time.Time) *fraud.Signal {
	return &fraud.Signal{
		ID:               uuid.New(),
		SessionID:        uuid.New(),
		UserID:           uuid.New(),
		Type:             fraud.SignalDevice,
		Severity:         sev,
		RuleKey:          ruleKey,
		ResolutionStatus: fraud.StatusOpen,
		Version:          1,
		CreatedAt:        at,
	}
}

func TestSignalRepository_ListOpenOrdering(t *testing.T) {
	repo := NewSignalRepository()
	ctx := context.Background()
	now := time.Now()

	oldWarning := newSignal(fraud.SeverityWarning, fraud.RuleMinTimeToSubmit, now.Add(-time.Hour))
	newWarning := newSignal(fraud.SeverityWarning, fraud.RuleMinTimeToSubmit, now)
	info := newSignal(fraud.SeverityInformational, fraud.RuleCookiesDisabled, now)
	critical := newSignal(fraud.SeverityCritical, fraud.RuleHeadlessBrowser, now.Add(-2*time.Hour))
	resolved := newSignal(fraud.SeverityCritical, fraud.RuleHeadlessBrowser, now)
	resolved.ResolutionStatus = fraud.StatusConfirmed

	require.NoError(t, repo.Create(ctx, oldWarning, newWarning, info, critical, resolved))

	open, err := repo.ListOpen(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 4)
	assert.Equal(t, critical.ID, open[0].ID)
	assert.Equal(t, newWarning.ID, open[1].ID)
	assert.Equal(t, oldWarning.ID, open[2].ID)
	assert.Equal(t, info.ID, open[3].ID)

	paged, err := repo.ListOpen(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, newWarning.ID, paged[0].ID)

	empty, err := repo.ListOpen(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSignalRepository_Resolve(t *testing.T) {
	repo := NewSignalRepository()
	ctx := context.Background()

	s := newSignal(fraud.SeverityWarning, fraud.RuleMaxTxPerHour, time.Now())
	require.NoError(t, repo.Create(ctx, s))

	n, err := repo.CountOpenWarningsByUser(ctx, s.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	expected := stored.Version
	require.NoError(t, stored.Resolve(fraud.DecisionConfirmed, "r1", time.Now()))
	decision := fraud.NewReviewDecision(stored, fraud.DecisionConfirmed, "r1", time.Now())

	require.NoError(t, repo.Resolve(ctx, stored, expected, decision))

	// a second writer holding the old version loses
	stale := *s
	require.NoError(t, stale.Resolve(fraud.DecisionFalsePositive, "r2", time.Now()))
	err = repo.Resolve(ctx, &stale, expected, fraud.NewReviewDecision(&stale, fraud.DecisionFalsePositive, "r2", time.Now()))
	assert.ErrorIs(t, err, fraud.ErrDuplicateResolution)

	got, err := repo.GetDecision(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ReviewerID)

	n, err = repo.CountOpenWarningsByUser(ctx, s.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSignalRepository_NotFound(t *testing.T) {
	repo := NewSignalRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, fraud.ErrSignalNotFound)

	s := newSignal(fraud.SeverityWarning, fraud.RuleMaxTxPerHour, time.Now())
	err = repo.Resolve(ctx, s, 1, fraud.NewReviewDecision(s, fraud.DecisionConfirmed, "r1", time.Now()))
	assert.ErrorIs(t, err, fraud.ErrSignalNotFound)
}

func TestSignalRepository_RuleStats(t *testing.T) {
	repo := NewSignalRepository()
	ctx := context.Background()

	statuses := []fraud.ResolutionStatus{
		fraud.StatusConfirmed, fraud.StatusFalsePositive, fraud.StatusFalsePositive, fraud.StatusOpen,
	}
	for _, st := range statuses {
		s := newSignal(fraud.SeverityCritical, fraud.RuleHeadlessBrowser, time.Now())
		s.ResolutionStatus = st
		require.NoError(t, repo.Create(ctx, s))
	}
	require.NoError(t, repo.Create(ctx, newSignal(fraud.SeverityWarning, fraud.RuleMaxTxPerHour, time.Now())))

	stats, err := repo.RuleStats(ctx, fraud.RuleHeadlessBrowser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Confirmed)
	assert.Equal(t, int64(2), stats.FalsePositives)
	assert.InDelta(t, 2.0/3.0, stats.FalsePositiveRate(), 1e-9)
}

func TestVelocityTracker_Window(t *testing.T) {
	v := NewVelocityTracker()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	require.NoError(t, v.Record(ctx, userID, uuid.New(), decimal.RequireFromString("10.50"), now.Add(-59*time.Minute)))
	require.NoError(t, v.Record(ctx, userID, uuid.New(), decimal.RequireFromString("20"), now))
	require.NoError(t, v.Record(ctx, userID, uuid.New(), decimal.RequireFromString("999"), now.Add(-61*time.Minute)))

	count, sum, err := v.Window(ctx, userID, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, sum.Equal(decimal.RequireFromString("30.50")), sum.String())
}
