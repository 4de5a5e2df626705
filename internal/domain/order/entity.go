package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a completed checkout reported back by the marketplace.
// Completed orders feed first-transaction and average order value checks.
type Order struct {
	// Identity
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"order_id"` // ID assigned by the checkout collaborator

	UserID    uuid.UUID  `json:"user_id"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`

	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	CompletedAt time.Time `json:"completed_at"`
}

// NewOrder creates a completed order record
func NewOrder(userID uuid.UUID, externalID string, amount decimal.Decimal, currency string, completedAt time.Time) *Order {
	return &Order{
		ID:          uuid.New(),
		ExternalID:  externalID,
		UserID:      userID,
		Amount:      amount,
		Currency:    currency,
		CompletedAt: completedAt,
	}
}

// IsHighValue determines if the order is above threshold
func (o *Order) IsHighValue(threshold decimal.Decimal) bool {
	return o.Amount.GreaterThan(threshold)
}

// Validate performs basic validation on the order
func (o *Order) Validate() error {
	if o.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	if o.ExternalID == "" {
		return ErrMissingOrderID
	}
	if o.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if o.Amount.IsZero() {
		return ErrZeroAmount
	}
	if o.Currency == "" {
		return ErrMissingCurrency
	}
	return nil
}

// History summarizes a user's completed orders for scoring
type History struct {
	CompletedOrders   int64           `json:"completed_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	WindowOrders      int64           `json:"window_orders"`
}
