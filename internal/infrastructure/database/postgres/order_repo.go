package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"checkout-fraud-engine/internal/domain/order"
)

// OrderModel is the database model for completed orders
type OrderModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ExternalID  string          `gorm:"type:varchar(100);uniqueIndex:idx_orders_user_external;not null"`
	UserID      uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_orders_user_external;index:idx_orders_user_completed;not null"`
	SessionID   *uuid.UUID      `gorm:"type:uuid"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	CompletedAt time.Time       `gorm:"index:idx_orders_user_completed;not null"`
}

// TableName returns the table name for orders
func (OrderModel) TableName() string {
	return "completed_orders"
}

// OrderRepository implements order.Repository
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(client *Client) *OrderRepository {
	return &OrderRepository{db: client.DB()}
}

// Create stores a completed order
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := &OrderModel{
		ID:          o.ID,
		ExternalID:  o.ExternalID,
		UserID:      o.UserID,
		SessionID:   o.SessionID,
		Amount:      o.Amount,
		Currency:    o.Currency,
		CompletedAt: o.CompletedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return order.ErrDuplicateOrder
		}
		return err
	}
	return nil
}

// GetByExternalID retrieves an order by the collaborator's id
func (r *OrderRepository) GetByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*order.Order, error) {
	var model OrderModel
	if err := r.db.WithContext(ctx).
		First(&model, "user_id = ? AND external_id = ?", userID, externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return modelToOrder(&model), nil
}

// CountByUserID counts completed orders
func (r *OrderRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// SumAndCountSince sums amounts of orders completed since
func (r *OrderRepository) SumAndCountSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.NullDecimal
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).
		Select("SUM(amount) AS total, COUNT(*) AS count").
		Where("user_id = ? AND completed_at >= ?", userID, since).
		Scan(&row).Error; err != nil {
		return decimal.Zero, 0, err
	}
	if !row.Total.Valid {
		return decimal.Zero, row.Count, nil
	}
	return row.Total.Decimal, row.Count, nil
}

// ListByUserID retrieves orders for a user, newest first
func (r *OrderRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*order.Order, error) {
	var models []OrderModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*order.Order, len(models))
	for i := range models {
		out[i] = modelToOrder(&models[i])
	}
	return out, nil
}

func modelToOrder(m *OrderModel) *order.Order {
	return &order.Order{
		ID:          m.ID,
		ExternalID:  m.ExternalID,
		UserID:      m.UserID,
		SessionID:   m.SessionID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		CompletedAt: m.CompletedAt,
	}
}
