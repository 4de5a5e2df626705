package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/application/collect"
	"checkout-fraud-engine/internal/application/dto"
	"checkout-fraud-engine/internal/domain/session"
)

// SessionHandler receives checkout telemetry
type SessionHandler struct {
	collector *collect.Collector
	logger    *zap.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(collector *collect.Collector, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{collector: collector, logger: logger}
}

// Start handles POST /api/v1/fraud/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		decodeError(w, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	s, err := h.collector.Start(r.Context(), userID, req.DeviceAttributes)
	if err != nil {
		writeDomainError(w, h.logger, "session start", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewSessionResponse(s))
}

// RecordEvents handles POST /api/v1/fraud/sessions/{id}/events
func (h *SessionHandler) RecordEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var batch session.Telemetry
	if err := decodeJSON(w, r, &batch); err != nil {
		decodeError(w, err)
		return
	}

	s, err := h.collector.Record(r.Context(), id, batch)
	if err != nil {
		writeDomainError(w, h.logger, "telemetry", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSessionResponse(s))
}

// Get handles GET /api/v1/fraud/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	s, err := h.collector.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, "session lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSessionResponse(s))
}
