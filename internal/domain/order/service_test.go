package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/infrastructure/database/memory"
)

func TestService_CompleteIsIdempotent(t *testing.T) {
	svc := order.NewService(memory.NewOrderRepository())
	ctx := context.Background()
	userID := uuid.New()

	first := order.NewOrder(userID, "ord-1", decimal.NewFromInt(120), "USD", time.Now())
	stored, created, err := svc.Complete(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	replay := order.NewOrder(userID, "ord-1", decimal.NewFromInt(999), "USD", time.Now())
	again, created, err := svc.Complete(ctx, replay)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(120)))
}

func TestService_CompleteValidates(t *testing.T) {
	svc := order.NewService(memory.NewOrderRepository())
	svc.SetMaxOrderAmount(decimal.NewFromInt(1000))
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name string
		o    *order.Order
		err  error
	}{
		{"nil user", order.NewOrder(uuid.Nil, "a", decimal.NewFromInt(1), "USD", time.Now()), order.ErrInvalidUserID},
		{"missing id", order.NewOrder(userID, "", decimal.NewFromInt(1), "USD", time.Now()), order.ErrMissingOrderID},
		{"negative", order.NewOrder(userID, "a", decimal.NewFromInt(-1), "USD", time.Now()), order.ErrNegativeAmount},
		{"zero", order.NewOrder(userID, "a", decimal.Zero, "USD", time.Now()), order.ErrZeroAmount},
		{"no currency", order.NewOrder(userID, "a", decimal.NewFromInt(1), "", time.Now()), order.ErrMissingCurrency},
		{"too large", order.NewOrder(userID, "a", decimal.NewFromInt(1001), "USD", time.Now()), order.ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Complete(ctx, tt.o)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestService_History(t *testing.T) {
	svc := order.NewService(memory.NewOrderRepository())
	ctx := context.Background()
	userID := uuid.New()

	h, err := svc.History(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, h.CompletedOrders)
	assert.True(t, h.AverageOrderValue.IsZero())

	old := order.NewOrder(userID, "old", decimal.NewFromInt(5000), "USD", time.Now().Add(-120*24*time.Hour))
	_, _, err = svc.Complete(ctx, old)
	require.NoError(t, err)
	for i, amount := range []int64{100, 200} {
		o := order.NewOrder(userID, string(rune('a'+i)), decimal.NewFromInt(amount), "USD", time.Now().Add(-time.Hour))
		_, _, err := svc.Complete(ctx, o)
		require.NoError(t, err)
	}

	h, err = svc.History(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), h.CompletedOrders)
	assert.Equal(t, int64(2), h.WindowOrders)
	assert.True(t, h.AverageOrderValue.Equal(decimal.NewFromInt(150)), h.AverageOrderValue.String())
}
