package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/application/dto"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/domain/trust"
)

const maxBodyBytes = 1 << 20

type contextKey string

const reviewerKey contextKey = "reviewer_id"

// WithReviewer stores the authenticated reviewer in ctx
func WithReviewer(ctx context.Context, reviewerID string) context.Context {
	return context.WithValue(ctx, reviewerKey, reviewerID)
}

// ReviewerFrom returns the authenticated reviewer, if any
func ReviewerFrom(ctx context.Context) string {
	id, _ := ctx.Value(reviewerKey).(string)
	return id
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return dto.Validate(dst)
}

var (
	badRequest = []error{
		dto.ErrInvalidAmount,
		fraud.ErrMissingUser,
		fraud.ErrInvalidAmount,
		fraud.ErrInvalidDecision,
		fraud.ErrMissingReviewer,
		fraud.ErrInvalidComparator,
		fraud.ErrInvalidRuleSeverity,
		fraud.ErrInvalidWeight,
		fraud.ErrRuleConfigInvalid,
		order.ErrInvalidUserID,
		order.ErrMissingOrderID,
		order.ErrNegativeAmount,
		order.ErrZeroAmount,
		order.ErrMissingCurrency,
		order.ErrAmountTooLarge,
		session.ErrInvalidUser,
		session.ErrInvalidStatus,
		trust.ErrInvalidUser,
		trust.ErrMissingOrderID,
	}
	notFound = []error{
		fraud.ErrSignalNotFound,
		fraud.ErrRuleNotFound,
		order.ErrOrderNotFound,
		session.ErrSessionNotFound,
	}
	conflict = []error{
		fraud.ErrDuplicateResolution,
		trust.ErrLedgerConflict,
		trust.ErrNotSuspended,
		session.ErrSessionClosed,
	}
)

func statusFor(err error) int {
	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflict {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// writeDomainError maps err to a status. Internal errors are logged and
// their detail is not returned.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("op", op), zap.Error(err))
		writeError(w, status, op+" failed")
		return
	}
	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	writeError(w, status, err.Error())
}

// decodeError handles a decodeJSON failure
func decodeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	writeError(w, status, err.Error())
}
