package dto

import (
	"github.com/google/uuid"

	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/session"
)

// AssessRequest is what checkout sends before committing a payment
type AssessRequest struct {
	UserID           string             `json:"user_id" validate:"required,uuid"`
	SessionID        string             `json:"session_id,omitempty" validate:"omitempty,uuid"`
	Telemetry        *session.Telemetry `json:"session_telemetry,omitempty"`
	DeviceAttributes map[string]string  `json:"device_attributes,omitempty" validate:"omitempty,max=64"`
	CartTotal        string             `json:"cart_total" validate:"required,decimal"`
	Currency         string             `json:"currency" validate:"required,len=3,iso4217"`
}

// AssessResponse is the buyer-facing decision
type AssessResponse struct {
	AssessmentID   uuid.UUID            `json:"assessment_id"`
	SessionID      uuid.UUID            `json:"session_id"`
	RiskScore      int                  `json:"risk_score"`
	Recommendation fraud.Recommendation `json:"recommendation"`
	Reasons        []fraud.SignalType   `json:"reasons"`
	Degraded       bool                 `json:"degraded"`
	LatencyMs      int64                `json:"latency_ms"`
}

// BatchAssessRequest scores several attempts in one call
type BatchAssessRequest struct {
	Assessments []AssessRequest `json:"assessments" validate:"required,min=1,max=100,dive"`
}

// BatchAssessResponse carries results in request order plus a summary
type BatchAssessResponse struct {
	Results []AssessResponse `json:"results"`
	Summary BatchSummary     `json:"summary"`
}

// BatchSummary counts recommendations in a batch
type BatchSummary struct {
	Total        int   `json:"total"`
	Approved     int   `json:"approved"`
	Review       int   `json:"review"`
	Blocked      int   `json:"blocked"`
	Degraded     int   `json:"degraded"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}
