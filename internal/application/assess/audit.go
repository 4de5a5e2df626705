package assess

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/pkg/metrics"
)

// AuditWriter runs durability work off the decision path. Each job gets its
// own timeout; Close waits for jobs in flight.
type AuditWriter struct {
	wg      sync.WaitGroup
	sem     chan struct{}
	timeout time.Duration
	logger  *zap.Logger
}

// NewAuditWriter allows at most concurrency jobs to run at once
func NewAuditWriter(concurrency int, timeout time.Duration, logger *zap.Logger) *AuditWriter {
	if concurrency <= 0 {
		concurrency = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuditWriter{
		sem:     make(chan struct{}, concurrency),
		timeout: timeout,
		logger:  logger,
	}
}

// Go schedules fn without blocking the caller
func (w *AuditWriter) Go(target string, fn func(ctx context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sem <- struct{}{}
		defer func() { <-w.sem }()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.AuditWritesTotal.WithLabelValues(target, "error").Inc()
			w.logger.Error("audit write failed", zap.String("target", target), zap.Error(err))
			return
		}
		metrics.AuditWritesTotal.WithLabelValues(target, "ok").Inc()
	}()
}

// Wait blocks until every scheduled job finished
func (w *AuditWriter) Wait() {
	w.wg.Wait()
}

// Close waits for jobs until ctx is done
func (w *AuditWriter) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
