package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AverageWindow is the trailing window for average order value
const AverageWindow = 90 * 24 * time.Hour

// Service handles completed order bookkeeping
type Service struct {
	repo Repository

	maxOrderAmount decimal.Decimal
	now            func() time.Time
}

// NewService creates a new order service
func NewService(repo Repository) *Service {
	return &Service{
		repo:           repo,
		maxOrderAmount: decimal.NewFromInt(1000000), // $1M default max
		now:            time.Now,
	}
}

// SetMaxOrderAmount sets the maximum accepted order amount
func (s *Service) SetMaxOrderAmount(amount decimal.Decimal) {
	s.maxOrderAmount = amount
}

// Complete records a completed order. Replays of the same order return the
// stored record with created=false.
func (s *Service) Complete(ctx context.Context, o *Order) (stored *Order, created bool, err error) {
	if err := o.Validate(); err != nil {
		return nil, false, err
	}
	if o.Amount.GreaterThan(s.maxOrderAmount) {
		return nil, false, ErrAmountTooLarge
	}
	if o.CompletedAt.IsZero() {
		o.CompletedAt = s.now()
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			existing, getErr := s.repo.GetByExternalID(ctx, o.UserID, o.ExternalID)
			if getErr != nil {
				return nil, false, fmt.Errorf("failed to load recorded order: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to record order: %w", err)
	}
	return o, true, nil
}

// History summarizes completed orders for the scoring engine
func (s *Service) History(ctx context.Context, userID uuid.UUID) (*History, error) {
	count, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	h := &History{CompletedOrders: count, AverageOrderValue: decimal.Zero}
	if count == 0 {
		return h, nil
	}

	sum, n, err := s.repo.SumAndCountSince(ctx, userID, s.now().Add(-AverageWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to sum orders: %w", err)
	}
	h.WindowOrders = n
	if n > 0 {
		h.AverageOrderValue = sum.Div(decimal.NewFromInt(n))
	}
	return h, nil
}

// ListUserOrders retrieves completed orders for a user
func (s *Service) ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error) {
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}
