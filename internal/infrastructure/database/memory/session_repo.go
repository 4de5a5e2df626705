package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"checkout-fraud-engine/internal/domain/session"
)

// SessionRepository implements session.Repository
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[uuid.UUID]*session.Session)}
}

func cloneSession(s *session.Session) *session.Session {
	c := *s
	c.Telemetry.Pointer = append([]session.PointerSample(nil), s.Telemetry.Pointer...)
	c.Telemetry.Keystrokes = append([]int64(nil), s.Telemetry.Keystrokes...)
	return &c
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return session.ErrSessionNotFound
	}
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*session.Session, error) {
	r.mu.RLock()
	var out []*session.Session
	for _, s := range r.sessions {
		if s.Status == session.StatusActive && !now.Before(s.ExpiresAt) {
			out = append(out, cloneSession(s))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return page(out, limit, 0), nil
}
