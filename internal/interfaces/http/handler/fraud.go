package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/application/assess"
	"checkout-fraud-engine/internal/application/dto"
	"checkout-fraud-engine/internal/domain/fraud"
)

// FraudHandler serves the synchronous decision gate
type FraudHandler struct {
	gate   *assess.Gate
	logger *zap.Logger
}

// NewFraudHandler creates a new fraud handler
func NewFraudHandler(gate *assess.Gate, logger *zap.Logger) *FraudHandler {
	return &FraudHandler{gate: gate, logger: logger}
}

// Assess handles POST /api/v1/fraud/assess
func (h *FraudHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req dto.AssessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		decodeError(w, err)
		return
	}

	input, err := toInput(&req)
	if err != nil {
		writeDomainError(w, h.logger, "assessment", err)
		return
	}

	a, err := h.gate.Assess(r.Context(), *input)
	if err != nil {
		writeDomainError(w, h.logger, "assessment", err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(a))
}

// BatchAssess handles POST /api/v1/fraud/assess/batch
func (h *FraudHandler) BatchAssess(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchAssessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		decodeError(w, err)
		return
	}

	inputs := make([]assess.Input, 0, len(req.Assessments))
	for i := range req.Assessments {
		input, err := toInput(&req.Assessments[i])
		if err != nil {
			writeDomainError(w, h.logger, "batch assessment", err)
			return
		}
		inputs = append(inputs, *input)
	}

	results := h.gate.AssessBatch(r.Context(), inputs)

	resp := dto.BatchAssessResponse{Results: make([]dto.AssessResponse, 0, len(results))}
	var totalLatency int64
	for _, res := range results {
		if res.Err != nil {
			writeDomainError(w, h.logger, "batch assessment", res.Err)
			return
		}
		a := res.Assessment
		resp.Results = append(resp.Results, toResponse(a))
		totalLatency += a.LatencyMs

		switch a.Recommendation {
		case fraud.RecommendApprove:
			resp.Summary.Approved++
		case fraud.RecommendReview:
			resp.Summary.Review++
		case fraud.RecommendBlock:
			resp.Summary.Blocked++
		}
		if a.Degraded {
			resp.Summary.Degraded++
		}
	}
	resp.Summary.Total = len(results)
	if len(results) > 0 {
		resp.Summary.AvgLatencyMs = totalLatency / int64(len(results))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toInput(req *dto.AssessRequest) (*assess.Input, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, fraud.ErrMissingUser
	}
	amount, err := dto.ParseAmount(req.CartTotal, req.Currency)
	if err != nil {
		return nil, err
	}

	input := &assess.Input{
		UserID:           userID,
		Telemetry:        req.Telemetry,
		DeviceAttributes: req.DeviceAttributes,
		CartTotal:        amount,
		Currency:         req.Currency,
	}
	if req.SessionID != "" {
		sid, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, &dto.ValidationError{Fields: map[string]string{"session_id": "uuid"}}
		}
		input.SessionID = &sid
	}
	return input, nil
}

func toResponse(a *assess.Assessment) dto.AssessResponse {
	return dto.AssessResponse{
		AssessmentID:   a.ID,
		SessionID:      a.SessionID,
		RiskScore:      a.RiskScore,
		Recommendation: a.Recommendation,
		Reasons:        a.Reasons,
		Degraded:       a.Degraded,
		LatencyMs:      a.LatencyMs,
	}
}
