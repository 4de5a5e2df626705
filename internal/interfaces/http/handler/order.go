package handler

import (
	"net/http"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/application/completion"
	"checkout-fraud-engine/internal/application/dto"
)

// OrderHandler receives completed orders from checkout
type OrderHandler struct {
	completeOrder *completion.CompleteOrderUseCase
	logger        *zap.Logger
}

// NewOrderHandler creates an order handler
func NewOrderHandler(completeOrder *completion.CompleteOrderUseCase, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{completeOrder: completeOrder, logger: logger}
}

// Complete handles POST /api/v1/fraud/orders/complete.
// Replays answer 200 with recorded=false; first completions answer 201.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		decodeError(w, err)
		return
	}

	resp, err := h.completeOrder.Execute(r.Context(), &req)
	if err != nil {
		writeDomainError(w, h.logger, "order completion", err)
		return
	}

	status := http.StatusOK
	if resp.Recorded {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}
