package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkout-fraud-engine/internal/domain/fraud"
)

// SignalModel is the database model for fraud signals
type SignalModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID        uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID           uuid.UUID `gorm:"type:uuid;index:idx_signals_user_status;not null"`
	SignalType       string    `gorm:"type:varchar(30);not null"`
	Severity         string    `gorm:"type:varchar(20);not null"`
	RuleKey          string    `gorm:"type:varchar(100);index;not null"`
	RuleVersion      int       `gorm:"not null;default:1"`
	Weight           int       `gorm:"not null"`
	RawEvidence      string    `gorm:"type:jsonb"`
	ResolutionStatus string    `gorm:"type:varchar(20);index:idx_signals_user_status;not null"`
	ResolvedBy       *string   `gorm:"type:varchar(100)"`
	ResolvedAt       *time.Time
	Version          int       `gorm:"not null"`
	CreatedAt        time.Time `gorm:"index;not null"`
}

// TableName returns the table name for fraud signals
func (SignalModel) TableName() string {
	return "fraud_signals"
}

// ReviewDecisionModel is the append-only audit row of a resolution
type ReviewDecisionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SignalID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ReviewerID string    `gorm:"type:varchar(100);not null"`
	Decision   string    `gorm:"type:varchar(20);not null"`
	DecidedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for review decisions
func (ReviewDecisionModel) TableName() string {
	return "review_decisions"
}

// RuleModel is the database model for detection rules
type RuleModel struct {
	Key            string          `gorm:"column:rule_key;type:varchar(100);primaryKey"`
	Description    string          `gorm:"type:text"`
	Comparator     string          `gorm:"type:varchar(5);not null"`
	ThresholdValue decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Weight         int             `gorm:"not null"`
	Severity       string          `gorm:"type:varchar(20);not null"`
	IsActive       bool            `gorm:"index;not null"`
	Version        int             `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for detection rules
func (RuleModel) TableName() string {
	return "detection_rules"
}

// SignalRepository implements fraud.SignalRepository
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(client *Client) *SignalRepository {
	return &SignalRepository{db: client.DB()}
}

// Create stores signals in one insert
func (r *SignalRepository) Create(ctx context.Context, signals ...*fraud.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	models := make([]SignalModel, len(signals))
	for i, s := range signals {
		models[i] = signalToModel(s)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

// GetByID retrieves a signal by ID
func (r *SignalRepository) GetByID(ctx context.Context, id uuid.UUID) (*fraud.Signal, error) {
	var model SignalModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fraud.ErrSignalNotFound
		}
		return nil, err
	}
	return modelToSignal(&model), nil
}

// ListOpen returns open signals, most severe then newest first
func (r *SignalRepository) ListOpen(ctx context.Context, limit, offset int) ([]*fraud.Signal, error) {
	var models []SignalModel
	if err := r.db.WithContext(ctx).
		Where("resolution_status = ?", string(fraud.StatusOpen)).
		Order("CASE severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}

	signals := make([]*fraud.Signal, len(models))
	for i := range models {
		signals[i] = modelToSignal(&models[i])
	}
	return signals, nil
}

// CountOpenWarningsByUser counts unresolved warning and critical signals for a user
func (r *SignalRepository) CountOpenWarningsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SignalModel{}).
		Where("user_id = ? AND resolution_status = ? AND severity <> ?",
			userID, string(fraud.StatusOpen), string(fraud.SeverityInformational)).
		Count(&count).Error
	return count, err
}

// Resolve conditionally updates the signal and appends the decision in one transaction
func (r *SignalRepository) Resolve(ctx context.Context, signal *fraud.Signal, expectedVersion int, decision *fraud.ReviewDecision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&SignalModel{}).
			Where("id = ? AND version = ? AND resolution_status = ?", signal.ID, expectedVersion, string(fraud.StatusOpen)).
			Updates(map[string]interface{}{
				"resolution_status": string(signal.ResolutionStatus),
				"resolved_by":       signal.ResolvedBy,
				"resolved_at":       signal.ResolvedAt,
				"version":           signal.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fraud.ErrDuplicateResolution
		}

		model := &ReviewDecisionModel{
			ID:         decision.ID,
			SignalID:   decision.SignalID,
			ReviewerID: decision.ReviewerID,
			Decision:   string(decision.Decision),
			DecidedAt:  decision.DecidedAt,
		}
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fraud.ErrDuplicateResolution
			}
			return err
		}
		return nil
	})
}

// GetDecision returns the review decision for a signal
func (r *SignalRepository) GetDecision(ctx context.Context, signalID uuid.UUID) (*fraud.ReviewDecision, error) {
	var model ReviewDecisionModel
	if err := r.db.WithContext(ctx).First(&model, "signal_id = ?", signalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fraud.ErrSignalNotFound
		}
		return nil, err
	}
	return &fraud.ReviewDecision{
		ID:         model.ID,
		SignalID:   model.SignalID,
		ReviewerID: model.ReviewerID,
		Decision:   fraud.Decision(model.Decision),
		DecidedAt:  model.DecidedAt,
	}, nil
}

// RuleStats counts resolved outcomes for signals raised by a rule
func (r *SignalRepository) RuleStats(ctx context.Context, ruleKey string) (*fraud.RuleStats, error) {
	var rows []struct {
		ResolutionStatus string
		Count            int64
	}
	if err := r.db.WithContext(ctx).Model(&SignalModel{}).
		Select("resolution_status, COUNT(*) AS count").
		Where("rule_key = ? AND resolution_status <> ?", ruleKey, string(fraud.StatusOpen)).
		Group("resolution_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &fraud.RuleStats{RuleKey: ruleKey}
	for _, row := range rows {
		switch fraud.ResolutionStatus(row.ResolutionStatus) {
		case fraud.StatusConfirmed:
			stats.Confirmed = row.Count
		case fraud.StatusFalsePositive:
			stats.FalsePositives = row.Count
		}
	}
	return stats, nil
}

// RuleRepository implements fraud.RuleRepository
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(client *Client) *RuleRepository {
	return &RuleRepository{db: client.DB()}
}

// Seed inserts rules that do not exist yet, leaving tuned rows alone
func (r *RuleRepository) Seed(ctx context.Context, rules []fraud.DetectionRule) error {
	models := make([]RuleModel, len(rules))
	for i, rule := range rules {
		models[i] = ruleToModel(&rule)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models).Error
}

// List returns all rules
func (r *RuleRepository) List(ctx context.Context) ([]fraud.DetectionRule, error) {
	var models []RuleModel
	if err := r.db.WithContext(ctx).Order("rule_key").Find(&models).Error; err != nil {
		return nil, err
	}
	rules := make([]fraud.DetectionRule, len(models))
	for i := range models {
		rules[i] = *modelToRule(&models[i])
	}
	return rules, nil
}

// GetByKey retrieves a rule by key
func (r *RuleRepository) GetByKey(ctx context.Context, key string) (*fraud.DetectionRule, error) {
	var model RuleModel
	if err := r.db.WithContext(ctx).First(&model, "rule_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fraud.ErrRuleNotFound
		}
		return nil, err
	}
	return modelToRule(&model), nil
}

// Upsert creates or replaces a rule, bumping its version
func (r *RuleRepository) Upsert(ctx context.Context, rule *fraud.DetectionRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current RuleModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "rule_key = ?", rule.Key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rule.Version = 1
		case err != nil:
			return err
		default:
			rule.Version = current.Version + 1
		}
		rule.UpdatedAt = time.Now().UTC()
		model := ruleToModel(rule)
		return tx.Save(&model).Error
	})
}

func signalToModel(s *fraud.Signal) SignalModel {
	return SignalModel{
		ID:               s.ID,
		SessionID:        s.SessionID,
		UserID:           s.UserID,
		SignalType:       string(s.Type),
		Severity:         string(s.Severity),
		RuleKey:          s.RuleKey,
		RuleVersion:      s.RuleVersion,
		Weight:           s.Weight,
		RawEvidence:      string(s.RawEvidence),
		ResolutionStatus: string(s.ResolutionStatus),
		ResolvedBy:       s.ResolvedBy,
		ResolvedAt:       s.ResolvedAt,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
	}
}

func modelToSignal(m *SignalModel) *fraud.Signal {
	var evidence json.RawMessage
	if m.RawEvidence != "" {
		evidence = json.RawMessage(m.RawEvidence)
	}
	return &fraud.Signal{
		ID:               m.ID,
		SessionID:        m.SessionID,
		UserID:           m.UserID,
		Type:             fraud.SignalType(m.SignalType),
		Severity:         fraud.Severity(m.Severity),
		RuleKey:          m.RuleKey,
		RuleVersion:      m.RuleVersion,
		Weight:           m.Weight,
		RawEvidence:      evidence,
		ResolutionStatus: fraud.ResolutionStatus(m.ResolutionStatus),
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       m.ResolvedAt,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
	}
}

func ruleToModel(rule *fraud.DetectionRule) RuleModel {
	return RuleModel{
		Key:            rule.Key,
		Description:    rule.Description,
		Comparator:     string(rule.Comparator),
		ThresholdValue: rule.ThresholdValue,
		Weight:         rule.Weight,
		Severity:       string(rule.Severity),
		IsActive:       rule.IsActive,
		Version:        rule.Version,
		UpdatedAt:      rule.UpdatedAt,
	}
}

func modelToRule(m *RuleModel) *fraud.DetectionRule {
	return &fraud.DetectionRule{
		Key:            m.Key,
		Description:    m.Description,
		Comparator:     fraud.Comparator(m.Comparator),
		ThresholdValue: m.ThresholdValue,
		Weight:         m.Weight,
		Severity:       fraud.Severity(m.Severity),
		IsActive:       m.IsActive,
		Version:        m.Version,
		UpdatedAt:      m.UpdatedAt,
	}
}
