package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/domain/fraud"
)

// BreakerSettings tune the circuit around velocity reads
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ConsecutiveFails uint32
}

// BreakerTracker guards a velocity tracker with a circuit breaker so that a
// slow or down cache degrades velocity checks instead of every assessment.
type BreakerTracker struct {
	next   fraud.VelocityTracker
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

type velocityWindow struct {
	count int64
	sum   decimal.Decimal
}

// NewBreakerTracker wraps next
func NewBreakerTracker(next fraud.VelocityTracker, s BreakerSettings, logger *zap.Logger) *BreakerTracker {
	if s.ConsecutiveFails == 0 {
		s.ConsecutiveFails = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "velocity",
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFails
		},
		// a caller giving up says nothing about the cache
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &BreakerTracker{next: next, cb: cb, logger: logger}
}

// Record passes through the breaker
func (b *BreakerTracker) Record(ctx context.Context, userID, attemptID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Record(ctx, userID, attemptID, amount, at)
	})
	return b.translate(err)
}

// Window passes through the breaker; an open circuit yields fraud.ErrVelocityUnknown
func (b *BreakerTracker) Window(ctx context.Context, userID uuid.UUID, window time.Duration, now time.Time) (int64, decimal.Decimal, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		count, sum, err := b.next.Window(ctx, userID, window, now)
		if err != nil {
			return nil, err
		}
		return velocityWindow{count: count, sum: sum}, nil
	})
	if err != nil {
		return 0, decimal.Zero, b.translate(err)
	}
	w := res.(velocityWindow)
	return w.count, w.sum, nil
}

// State reports the breaker state for readiness checks
func (b *BreakerTracker) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerTracker) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fraud.ErrVelocityUnknown
	}
	return err
}
