package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"checkout-fraud-engine/internal/domain/trust"
)

// TrustScoreModel is the database model for per-user trust records
type TrustScoreModel struct {
	UserID                       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Score                        int       `gorm:"not null;check:score >= 0 AND score <= 100"`
	ConsecutiveCleanTransactions int       `gorm:"not null"`
	TotalConfirmedFraudSignals   int       `gorm:"not null"`
	TotalCompletedOrders         int       `gorm:"not null"`
	Suspended                    bool      `gorm:"not null"`
	Version                      int       `gorm:"not null"`
	LastUpdatedAt                time.Time `gorm:"not null"`
	CreatedAt                    time.Time `gorm:"not null"`
}

// TableName returns the table name for trust scores
func (TrustScoreModel) TableName() string {
	return "trust_scores"
}

// LedgerEntryModel records one applied trust mutation; the key makes it idempotent
type LedgerEntryModel struct {
	Key        string    `gorm:"column:idempotency_key;type:varchar(200);primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Kind       string    `gorm:"type:varchar(20);not null"`
	ScoreAfter int       `gorm:"not null"`
	Delta      int       `gorm:"not null"`
	AppliedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for trust ledger entries
func (LedgerEntryModel) TableName() string {
	return "trust_ledger_entries"
}

// TrustRepository implements trust.Repository
type TrustRepository struct {
	db *gorm.DB
}

// NewTrustRepository creates a new trust repository
func NewTrustRepository(client *Client) *TrustRepository {
	return &TrustRepository{db: client.DB()}
}

// Get retrieves a user's trust record
func (r *TrustRepository) Get(ctx context.Context, userID uuid.UUID) (*trust.Score, error) {
	var model TrustScoreModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, trust.ErrScoreNotFound
		}
		return nil, err
	}
	return modelToTrustScore(&model), nil
}

// Create provisions a trust record
func (r *TrustRepository) Create(ctx context.Context, score *trust.Score) error {
	model := trustScoreToModel(score)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return trust.ErrScoreExists
		}
		return err
	}
	return nil
}

// Apply writes score only if the stored version matches and records entry,
// both in one transaction
func (r *TrustRepository) Apply(ctx context.Context, score *trust.Score, expectedVersion int, entry *trust.LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&TrustScoreModel{}).
			Where("user_id = ? AND version = ?", score.UserID, expectedVersion).
			Updates(map[string]interface{}{
				"score":                          score.Score,
				"consecutive_clean_transactions": score.ConsecutiveCleanTransactions,
				"total_confirmed_fraud_signals":  score.TotalConfirmedFraudSignals,
				"total_completed_orders":         score.TotalCompletedOrders,
				"suspended":                      score.Suspended,
				"version":                        score.Version,
				"last_updated_at":                score.LastUpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return trust.ErrVersionConflict
		}

		model := &LedgerEntryModel{
			Key:        entry.Key,
			UserID:     entry.UserID,
			Kind:       string(entry.Kind),
			ScoreAfter: entry.ScoreAfter,
			Delta:      entry.Delta,
			AppliedAt:  entry.AppliedAt,
		}
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return trust.ErrDuplicateMutation
			}
			return err
		}
		return nil
	})
}

func trustScoreToModel(s *trust.Score) TrustScoreModel {
	return TrustScoreModel{
		UserID:                       s.UserID,
		Score:                        s.Score,
		ConsecutiveCleanTransactions: s.ConsecutiveCleanTransactions,
		TotalConfirmedFraudSignals:   s.TotalConfirmedFraudSignals,
		TotalCompletedOrders:         s.TotalCompletedOrders,
		Suspended:                    s.Suspended,
		Version:                      s.Version,
		LastUpdatedAt:                s.LastUpdatedAt,
		CreatedAt:                    s.CreatedAt,
	}
}

func modelToTrustScore(m *TrustScoreModel) *trust.Score {
	return &trust.Score{
		UserID:                       m.UserID,
		Score:                        m.Score,
		ConsecutiveCleanTransactions: m.ConsecutiveCleanTransactions,
		TotalConfirmedFraudSignals:   m.TotalConfirmedFraudSignals,
		TotalCompletedOrders:         m.TotalCompletedOrders,
		Suspended:                    m.Suspended,
		Version:                      m.Version,
		LastUpdatedAt:                m.LastUpdatedAt,
		CreatedAt:                    m.CreatedAt,
	}
}
