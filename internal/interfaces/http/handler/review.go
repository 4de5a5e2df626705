package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/application/dto"
	"checkout-fraud-engine/internal/application/review"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/infrastructure/rules"
)

// ReviewHandler serves the reviewer workbench and rule administration
type ReviewHandler struct {
	workbench *review.Workbench
	engine    *rules.Engine
	logger    *zap.Logger
}

// NewReviewHandler creates a review handler
func NewReviewHandler(workbench *review.Workbench, engine *rules.Engine, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{workbench: workbench, engine: engine, logger: logger}
}

// ListSignals handles GET /api/v1/fraud/signals
func (h *ReviewHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", review.DefaultQueueLimit)
	offset := queryInt(r, "offset", 0)

	signals, err := h.workbench.Queue(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, h.logger, "signal queue", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": signals,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetSignal handles GET /api/v1/fraud/signals/{id}
func (h *ReviewHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	detail, err := h.workbench.Signal(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, "signal lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ResolveSignal handles POST /api/v1/fraud/signals/{id}/resolve
func (h *ReviewHandler) ResolveSignal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	var req dto.ResolveSignalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		decodeError(w, err)
		return
	}

	reviewer := ReviewerFrom(r.Context())
	if reviewer == "" {
		reviewer = req.ReviewerID
	}

	res, err := h.workbench.Resolve(r.Context(), id, fraud.Decision(req.Decision), reviewer)
	if err != nil {
		writeDomainError(w, h.logger, "signal resolution", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ResolveSignalResponse{
		Signal:     res.Signal,
		Decision:   res.Decision,
		TrustScore: dto.NewTrustResponse(res.TrustScore),
	})
}

// GetTrust handles GET /api/v1/fraud/trust/{user_id}
func (h *ReviewHandler) GetTrust(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	score, err := h.workbench.TrustScore(r.Context(), userID)
	if err != nil {
		writeDomainError(w, h.logger, "trust lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTrustResponse(score))
}

// GetProfile handles GET /api/v1/fraud/users/{user_id}/profile
func (h *ReviewHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	profile, err := h.workbench.Profile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, h.logger, "user profile", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ProfileResponse{
		TrustScore:   dto.NewTrustResponse(profile.TrustScore),
		Devices:      profile.Devices,
		RecentOrders: profile.RecentOrders,
	})
}

// Reinstate handles POST /api/v1/fraud/trust/{user_id}/reinstate
func (h *ReviewHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	score, err := h.workbench.Reinstate(r.Context(), userID, ReviewerFrom(r.Context()))
	if err != nil {
		writeDomainError(w, h.logger, "reinstatement", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTrustResponse(score))
}

// ListRules handles GET /api/v1/fraud/rules
func (h *ReviewHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListRules(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "rule listing", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": list,
		"count": len(list),
	})
}

// GetRule handles GET /api/v1/fraud/rules/{key}
func (h *ReviewHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.engine.GetRule(r.Context(), r.PathValue("key"))
	if err != nil {
		writeDomainError(w, h.logger, "rule lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// UpdateRule handles PUT /api/v1/fraud/rules/{key}
func (h *ReviewHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "Rule key is required")
		return
	}

	var req dto.UpdateRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		decodeError(w, err)
		return
	}

	threshold, err := decimal.NewFromString(req.ThresholdValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid threshold value")
		return
	}

	rule := &fraud.DetectionRule{
		Key:            key,
		Description:    req.Description,
		Comparator:     fraud.Comparator(req.Comparator),
		ThresholdValue: threshold,
		Weight:         req.Weight,
		Severity:       fraud.Severity(req.Severity),
		IsActive:       *req.IsActive,
	}
	if err := h.engine.UpdateRule(r.Context(), rule); err != nil {
		writeDomainError(w, h.logger, "rule update", err)
		return
	}

	h.logger.Info("rule changed by reviewer",
		zap.String("rule_key", key),
		zap.String("reviewer_id", ReviewerFrom(r.Context())))
	writeJSON(w, http.StatusOK, rule)
}

// RuleStats handles GET /api/v1/fraud/rules/{key}/stats
func (h *ReviewHandler) RuleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.workbench.RuleStats(r.Context(), r.PathValue("key"))
	if err != nil {
		writeDomainError(w, h.logger, "rule stats", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RuleStatsResponse{
		RuleStats:         *stats,
		FalsePositiveRate: stats.FalsePositiveRate(),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
