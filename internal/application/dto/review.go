package dto

import (
	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/trust"
)

// ResolveSignalRequest is a reviewer's verdict
type ResolveSignalRequest struct {
	Decision   string `json:"decision" validate:"required,oneof=confirmed false_positive"`
	ReviewerID string `json:"reviewer_id" validate:"omitempty,max=100"`
}

// ResolveSignalResponse returns the resolved signal and resulting trust record
type ResolveSignalResponse struct {
	Signal     *fraud.Signal         `json:"signal"`
	Decision   *fraud.ReviewDecision `json:"decision"`
	TrustScore *TrustResponse        `json:"trust_score"`
}

// TrustResponse is a trust record with its derived band
type TrustResponse struct {
	*trust.Score
	Band trust.Band `json:"band"`
}

// NewTrustResponse maps a trust record
func NewTrustResponse(s *trust.Score) *TrustResponse {
	if s == nil {
		return nil
	}
	return &TrustResponse{Score: s, Band: s.Band()}
}

// ProfileResponse is a user's trust record with devices and recent orders
type ProfileResponse struct {
	TrustScore   *TrustResponse        `json:"trust_score"`
	Devices      []*device.Fingerprint `json:"devices"`
	RecentOrders []*order.Order        `json:"recent_orders"`
}

// RuleStatsResponse adds the false positive rate to raw counts
type RuleStatsResponse struct {
	fraud.RuleStats
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// UpdateRuleRequest is an administrator's manual rule change
type UpdateRuleRequest struct {
	Description    string `json:"description" validate:"omitempty,max=500"`
	Comparator     string `json:"comparator" validate:"required,oneof=gt gte lt lte eq"`
	ThresholdValue string `json:"threshold_value" validate:"required,decimal"`
	Weight         int    `json:"weight" validate:"gte=0,lte=100"`
	Severity       string `json:"severity" validate:"required,oneof=informational warning critical"`
	IsActive       *bool  `json:"is_active" validate:"required"`
}
