package completion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"checkout-fraud-engine/internal/application/collect"
	"checkout-fraud-engine/internal/application/dto"
	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/domain/trust"
	"checkout-fraud-engine/internal/infrastructure/database/memory"
	"checkout-fraud-engine/internal/infrastructure/ml"
)

type fixture struct {
	uc        *CompleteOrderUseCase
	collector *collect.Collector
	registry  *device.Registry
	signals   *memory.SignalRepository
	trust     *memory.TrustRepository
	orders    *order.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &fixture{
		signals: memory.NewSignalRepository(),
		trust:   memory.NewTrustRepository(),
		orders:  order.NewService(memory.NewOrderRepository()),
	}
	f.registry = device.NewRegistry(memory.NewDeviceRepository())
	f.collector = collect.NewCollector(memory.NewSessionRepository(), f.registry, ml.NewFeatureExtractor(), 30*time.Minute, logger)
	ledger := trust.NewLedger(f.trust, f.signals)
	f.uc = NewCompleteOrderUseCase(f.orders, ledger, f.registry, f.collector, logger)
	return f
}

func attributes() map[string]string {
	return map[string]string{"user_agent": "Mozilla/5.0", "screen": "390x844", "platform": "iPhone"}
}

func request(userID uuid.UUID, orderID string) *dto.CompleteOrderRequest {
	return &dto.CompleteOrderRequest{
		UserID:   userID.String(),
		OrderID:  orderID,
		Amount:   "120.005",
		Currency: "USD",
	}
}

func TestExecute_RecordsOrderAndRewards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	s, err := f.collector.Start(ctx, userID, attributes())
	require.NoError(t, err)

	req := request(userID, "ord-1")
	req.SessionID = s.ID.String()

	resp, err := f.uc.Execute(ctx, req)
	require.NoError(t, err)

	assert.True(t, resp.Recorded)
	assert.Equal(t, "120.01", resp.Order.Amount.StringFixed(2))
	assert.Equal(t, trust.DefaultScore+trust.CompletionReward, resp.TrustScore.Score.Score)
	assert.Equal(t, 1, resp.TrustScore.TotalCompletedOrders)

	closed, err := f.collector.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, closed.Status)

	devices, err := f.registry.Devices(ctx, userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].TrustFlag)

	history, err := f.orders.History(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), history.CompletedOrders)
}

func TestExecute_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := f.uc.Execute(ctx, request(userID, "ord-1"))
	require.NoError(t, err)
	second, err := f.uc.Execute(ctx, request(userID, "ord-1"))
	require.NoError(t, err)

	assert.True(t, first.Recorded)
	assert.False(t, second.Recorded)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 52, second.TrustScore.Score.Score)
	assert.Len(t, f.trust.Entries(userID), 1)
}

func TestExecute_OpenSignalWithholdsReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, f.signals.Create(ctx, &fraud.Signal{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             fraud.SignalVelocity,
		Severity:         fraud.SeverityWarning,
		RuleKey:          fraud.RuleMaxTxPerHour,
		ResolutionStatus: fraud.StatusOpen,
		Version:          1,
		CreatedAt:        time.Now(),
	}))

	resp, err := f.uc.Execute(ctx, request(userID, "ord-1"))
	require.NoError(t, err)
	assert.Equal(t, trust.DefaultScore, resp.TrustScore.Score.Score)
	assert.Equal(t, 1, resp.TrustScore.TotalCompletedOrders)
}

func TestExecute_InformationalSignalKeepsReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, f.signals.Create(ctx, &fraud.Signal{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             fraud.SignalFirstTransaction,
		Severity:         fraud.SeverityInformational,
		RuleKey:          fraud.RuleFirstTransaction,
		ResolutionStatus: fraud.StatusOpen,
		Version:          1,
		CreatedAt:        time.Now(),
	}))

	resp, err := f.uc.Execute(ctx, request(userID, "ord-1"))
	require.NoError(t, err)
	assert.Equal(t, trust.DefaultScore+trust.CompletionReward, resp.TrustScore.Score.Score)
}

func TestExecute_ForeignSessionStaysOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.collector.Start(ctx, uuid.New(), attributes())
	require.NoError(t, err)

	req := request(uuid.New(), "ord-9")
	req.SessionID = s.ID.String()
	resp, err := f.uc.Execute(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Recorded)

	stored, err := f.collector.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, stored.Status)
}

func TestExecute_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*dto.CompleteOrderRequest)
		wantErr error
	}{
		{
			name:    "bad user id",
			mutate:  func(r *dto.CompleteOrderRequest) { r.UserID = "nope" },
			wantErr: order.ErrInvalidUserID,
		},
		{
			name:    "bad amount",
			mutate:  func(r *dto.CompleteOrderRequest) { r.Amount = "12,50" },
			wantErr: dto.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(r *dto.CompleteOrderRequest) { r.Amount = "-1" },
			wantErr: dto.ErrInvalidAmount,
		},
		{
			name:    "zero amount",
			mutate:  func(r *dto.CompleteOrderRequest) { r.Amount = "0" },
			wantErr: order.ErrZeroAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(uuid.New(), "ord-x")
			tt.mutate(req)
			_, err := f.uc.Execute(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
