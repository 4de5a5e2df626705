package dto

import "checkout-fraud-engine/internal/domain/order"

// CompleteOrderRequest reports a completed order back to the trust ledger
type CompleteOrderRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	OrderID   string `json:"order_id" validate:"required,max=100"`
	Amount    string `json:"amount" validate:"required,decimal"`
	Currency  string `json:"currency" validate:"required,len=3,iso4217"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid"`
}

// CompleteOrderResponse reports what the completion changed
type CompleteOrderResponse struct {
	Order      *order.Order   `json:"order"`
	Recorded   bool           `json:"recorded"`
	TrustScore *TrustResponse `json:"trust_score"`
}
