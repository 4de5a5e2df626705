package collect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/infrastructure/ml"
	"checkout-fraud-engine/internal/pkg/metrics"
)

const (
	lockStripes = 64
	sweepBatch  = 500
)

// Collector gathers checkout telemetry into sessions and turns it into
// feature vectors. Nothing here fails a checkout: missing device data or
// telemetry only lowers the confidence of the vector.
type Collector struct {
	sessions  session.Repository
	registry  *device.Registry
	extractor *ml.FeatureExtractor
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	locks [lockStripes]sync.Mutex
}

// NewCollector creates a collector
func NewCollector(sessions session.Repository, registry *device.Registry, extractor *ml.FeatureExtractor, ttl time.Duration, logger *zap.Logger) *Collector {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Collector{
		sessions:  sessions,
		registry:  registry,
		extractor: extractor,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Start opens and persists a session
func (c *Collector) Start(ctx context.Context, userID uuid.UUID, attributes map[string]string) (*session.Session, error) {
	s, err := c.Open(ctx, userID, attributes)
	if err != nil {
		return nil, err
	}
	if err := c.Persist(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Open builds a session without persisting it, resolving the device
// fingerprint when attributes are present
func (c *Collector) Open(ctx context.Context, userID uuid.UUID, attributes map[string]string) (*session.Session, error) {
	if userID == uuid.Nil {
		return nil, session.ErrInvalidUser
	}

	var (
		fpID  uuid.UUID
		hash  string
		known bool
	)
	res, err := c.registry.Resolve(ctx, userID, attributes)
	switch {
	case err == nil:
		fpID, hash, known = res.FingerprintID, res.Hash, res.Known
		if !res.Complete {
			c.logger.Debug("fingerprint below attribute minimum",
				zap.String("user_id", userID.String()),
				zap.Int("attributes", len(attributes)))
		}
	case errors.Is(err, device.ErrNoAttributes):
		c.logger.Info("session started without device attributes", zap.String("user_id", userID.String()))
	default:
		// the session goes on without a device, which scores as low confidence
		c.logger.Warn("fingerprint registry unavailable, continuing without device",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	return session.NewSession(userID, fpID, hash, known, c.now(), c.ttl), nil
}

// Persist stores a session built by Open
func (c *Collector) Persist(ctx context.Context, s *session.Session) error {
	if err := c.sessions.Create(ctx, s); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	metrics.ActiveSessions.Inc()
	return nil
}

// Get returns a session
func (c *Collector) Get(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	return c.sessions.GetByID(ctx, sessionID)
}

// Record appends a telemetry batch to an active session
func (c *Collector) Record(ctx context.Context, sessionID uuid.UUID, batch session.Telemetry) (*session.Session, error) {
	mu := c.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	s, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Record(batch, c.now()); err != nil {
		return nil, err
	}
	if err := c.sessions.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to persist telemetry: %w", err)
	}
	return s, nil
}

// Features computes the feature vector for a session
func (c *Collector) Features(s *session.Session) session.FeatureVector {
	return c.extractor.Extract(s.Telemetry, s.FingerprintHash)
}

// Finalize closes a session as completed or expired
func (c *Collector) Finalize(ctx context.Context, sessionID uuid.UUID, status session.Status) error {
	mu := c.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	s, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.Close(status, c.now()); err != nil {
		return err
	}
	if err := c.sessions.Update(ctx, s); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	metrics.ActiveSessions.Dec()
	return nil
}

// ExpireStale closes active sessions past their TTL and returns how many were closed
func (c *Collector) ExpireStale(ctx context.Context) (int, error) {
	expired, err := c.sessions.ListExpired(ctx, c.now(), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	closed := 0
	for _, s := range expired {
		if err := c.Finalize(ctx, s.ID, session.StatusExpired); err != nil {
			if errors.Is(err, session.ErrSessionClosed) {
				continue
			}
			return closed, err
		}
		closed++
	}
	if closed > 0 {
		c.logger.Info("expired stale sessions", zap.Int("count", closed))
	}
	return closed, nil
}

// RunSweeper expires stale sessions every interval until ctx is done
func (c *Collector) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.ExpireStale(ctx); err != nil {
				c.logger.Error("session sweep failed", zap.Error(err))
			}
		}
	}
}

func (c *Collector) lock(id uuid.UUID) *sync.Mutex {
	return &c.locks[int(id[0])%lockStripes]
}
