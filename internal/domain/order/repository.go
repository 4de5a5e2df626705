package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the contract for completed order persistence
type Repository interface {
	// Create stores a completed order; (user, external id) is unique and a
	// second insert returns ErrDuplicateOrder
	Create(ctx context.Context, o *Order) error

	// GetByExternalID retrieves an order by the collaborator's order id
	GetByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*Order, error)

	// CountByUserID counts all completed orders for a user
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// SumAndCountSince sums amounts of orders completed at or after since
	SumAndCountSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, int64, error)

	// ListByUserID retrieves orders for a user, newest first
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error)
}
