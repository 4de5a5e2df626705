package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkout-fraud-engine/internal/domain/device"
)

// FingerprintModel is the database model for device fingerprints
type FingerprintModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_fingerprint_user_hash;not null"`
	Hash        string    `gorm:"column:fingerprint_hash;type:varchar(64);uniqueIndex:idx_fingerprint_user_hash;not null"`
	FirstSeenAt time.Time `gorm:"not null"`
	LastSeenAt  time.Time `gorm:"not null"`
	TrustFlag   bool      `gorm:"not null"`
}

// TableName returns the table name for device fingerprints
func (FingerprintModel) TableName() string {
	return "device_fingerprints"
}

// DeviceRepository implements device.Repository
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(client *Client) *DeviceRepository {
	return &DeviceRepository{db: client.DB()}
}

// CreateIfAbsent inserts with ON CONFLICT DO NOTHING; zero rows means another writer won
func (r *DeviceRepository) CreateIfAbsent(ctx context.Context, fp *device.Fingerprint) error {
	model := &FingerprintModel{
		ID:          fp.ID,
		UserID:      fp.UserID,
		Hash:        fp.Hash,
		FirstSeenAt: fp.FirstSeenAt,
		LastSeenAt:  fp.LastSeenAt,
		TrustFlag:   fp.TrustFlag,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "fingerprint_hash"}},
			DoNothing: true,
		}).
		Create(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return device.ErrFingerprintExists
	}
	return nil
}

// Get retrieves the fingerprint for (user, hash)
func (r *DeviceRepository) Get(ctx context.Context, userID uuid.UUID, hash string) (*device.Fingerprint, error) {
	var model FingerprintModel
	if err := r.db.WithContext(ctx).
		First(&model, "user_id = ? AND fingerprint_hash = ?", userID, hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, device.ErrFingerprintNotFound
		}
		return nil, err
	}
	return modelToFingerprint(&model), nil
}

// Touch moves last_seen_at forward
func (r *DeviceRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&FingerprintModel{}).
		Where("id = ? AND last_seen_at < ?", id, at).
		Update("last_seen_at", at).Error
}

// MarkTrusted sets trust_flag
func (r *DeviceRepository) MarkTrusted(ctx context.Context, userID uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).Model(&FingerprintModel{}).
		Where("user_id = ? AND fingerprint_hash = ?", userID, hash).
		Update("trust_flag", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return device.ErrFingerprintNotFound
	}
	return nil
}

// ListByUser returns a user's devices, most recently seen first
func (r *DeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*device.Fingerprint, error) {
	var models []FingerprintModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*device.Fingerprint, len(models))
	for i := range models {
		out[i] = modelToFingerprint(&models[i])
	}
	return out, nil
}

func modelToFingerprint(m *FingerprintModel) *device.Fingerprint {
	return &device.Fingerprint{
		ID:          m.ID,
		UserID:      m.UserID,
		Hash:        m.Hash,
		FirstSeenAt: m.FirstSeenAt,
		LastSeenAt:  m.LastSeenAt,
		TrustFlag:   m.TrustFlag,
	}
}
