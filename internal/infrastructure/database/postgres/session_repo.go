package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"checkout-fraud-engine/internal/domain/session"
)

// SessionModel is the database model for checkout sessions
type SessionModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID `gorm:"type:uuid;index;not null"`
	FingerprintID   uuid.UUID `gorm:"type:uuid;index"`
	FingerprintHash string    `gorm:"type:varchar(64)"`
	KnownDevice     bool      `gorm:"not null"`
	Status          string    `gorm:"type:varchar(20);index:idx_sessions_status_expiry;not null"`
	Telemetry       string    `gorm:"type:jsonb"`
	CreatedAt       time.Time `gorm:"not null"`
	ExpiresAt       time.Time `gorm:"index:idx_sessions_status_expiry;not null"`
	ClosedAt        *time.Time
}

// TableName returns the table name for sessions
func (SessionModel) TableName() string {
	return "checkout_sessions"
}

// SessionRepository implements session.Repository
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *Client) *SessionRepository {
	return &SessionRepository{db: client.DB()}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	model, err := sessionToModel(s)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	return modelToSession(&model)
}

// Update saves telemetry and status
func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	model, err := sessionToModel(s)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&SessionModel{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"status":    model.Status,
			"telemetry": model.Telemetry,
			"closed_at": model.ClosedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// ListExpired returns active sessions past their expiry
func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*session.Session, error) {
	var models []SessionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", string(session.StatusActive), now).
		Order("expires_at").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*session.Session, 0, len(models))
	for i := range models {
		s, err := modelToSession(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func sessionToModel(s *session.Session) (*SessionModel, error) {
	telemetry, err := json.Marshal(s.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode telemetry: %w", err)
	}
	return &SessionModel{
		ID:              s.ID,
		UserID:          s.UserID,
		FingerprintID:   s.FingerprintID,
		FingerprintHash: s.FingerprintHash,
		KnownDevice:     s.KnownDevice,
		Status:          string(s.Status),
		Telemetry:       string(telemetry),
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt,
		ClosedAt:        s.ClosedAt,
	}, nil
}

func modelToSession(m *SessionModel) (*session.Session, error) {
	s := &session.Session{
		ID:              m.ID,
		UserID:          m.UserID,
		FingerprintID:   m.FingerprintID,
		FingerprintHash: m.FingerprintHash,
		KnownDevice:     m.KnownDevice,
		Status:          session.Status(m.Status),
		CreatedAt:       m.CreatedAt,
		ExpiresAt:       m.ExpiresAt,
		ClosedAt:        m.ClosedAt,
	}
	if m.Telemetry != "" {
		if err := json.Unmarshal([]byte(m.Telemetry), &s.Telemetry); err != nil {
			return nil, fmt.Errorf("failed to decode telemetry: %w", err)
		}
	}
	return s, nil
}
