package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"checkout-fraud-engine/internal/application/collect"
	"checkout-fraud-engine/internal/application/dto"
	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/domain/trust"
	"checkout-fraud-engine/internal/pkg/metrics"
)

// CompleteOrderUseCase is the entry point checkout calls after a payment
// succeeds. It records the order, rewards the trust ledger once per order,
// and promotes the session's device to trusted.
type CompleteOrderUseCase struct {
	orders    *order.Service
	ledger    *trust.Ledger
	registry  *device.Registry
	collector *collect.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewCompleteOrderUseCase creates a new use case instance
func NewCompleteOrderUseCase(
	orders *order.Service,
	ledger *trust.Ledger,
	registry *device.Registry,
	collector *collect.Collector,
	logger *zap.Logger,
) *CompleteOrderUseCase {
	return &CompleteOrderUseCase{
		orders:    orders,
		ledger:    ledger,
		registry:  registry,
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute records a completed order. Replaying the same order id is safe:
// the order is stored once and the ledger rewards it once.
func (uc *CompleteOrderUseCase) Execute(ctx context.Context, req *dto.CompleteOrderRequest) (*dto.CompleteOrderResponse, error) {
	o, err := uc.mapRequestToOrder(req)
	if err != nil {
		return nil, err
	}

	stored, created, err := uc.orders.Complete(ctx, o)
	if err != nil {
		return nil, err
	}

	var score *trust.Score
	g, gctx := errgroup.WithContext(ctx)

	// The ledger entry is keyed by order, so a replay after a partial
	// failure finishes the reward without doubling it.
	g.Go(func() error {
		s, err := uc.ledger.RecordCompletion(gctx, stored.UserID, stored.ExternalID)
		if err != nil {
			metrics.LedgerMutationsTotal.WithLabelValues(string(trust.MutationCompletion), "error").Inc()
			return fmt.Errorf("failed to apply completion to trust ledger: %w", err)
		}
		metrics.LedgerMutationsTotal.WithLabelValues(string(trust.MutationCompletion), "ok").Inc()
		score = s
		return nil
	})

	if stored.SessionID != nil {
		g.Go(func() error {
			uc.closeSession(gctx, stored.UserID, *stored.SessionID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	uc.logger.Info("order completed",
		zap.String("user_id", stored.UserID.String()),
		zap.String("order_id", stored.ExternalID),
		zap.String("amount", stored.Amount.String()),
		zap.Bool("recorded", created),
		zap.Int("trust_score", score.Score))

	return &dto.CompleteOrderResponse{
		Order:      stored,
		Recorded:   created,
		TrustScore: dto.NewTrustResponse(score),
	}, nil
}

// closeSession marks the device trusted and completes the session.
// Neither step can undo a recorded order, so failures are only logged.
func (uc *CompleteOrderUseCase) closeSession(ctx context.Context, userID, sessionID uuid.UUID) {
	s, err := uc.collector.Get(ctx, sessionID)
	if err != nil {
		uc.logger.Warn("completed order references unknown session",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
		return
	}
	if s.UserID != userID {
		uc.logger.Warn("completed order session belongs to another user",
			zap.String("session_id", sessionID.String()),
			zap.String("user_id", userID.String()))
		return
	}

	if s.FingerprintHash != "" {
		if err := uc.registry.MarkTrusted(ctx, userID, s.FingerprintHash); err != nil && !errors.Is(err, device.ErrFingerprintNotFound) {
			uc.logger.Warn("failed to mark device trusted",
				zap.String("session_id", sessionID.String()),
				zap.Error(err))
		}
	}

	if err := uc.collector.Finalize(ctx, sessionID, session.StatusCompleted); err != nil && !errors.Is(err, session.ErrSessionClosed) {
		uc.logger.Warn("failed to complete session",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}
}

func (uc *CompleteOrderUseCase) mapRequestToOrder(req *dto.CompleteOrderRequest) (*order.Order, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, order.ErrInvalidUserID
	}
	amount, err := dto.ParseAmount(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	o := order.NewOrder(userID, req.OrderID, amount, req.Currency, uc.now())
	if req.SessionID != "" {
		sid, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("invalid session id: %w", err)
		}
		o.SessionID = &sid
	}
	return o, nil
}
