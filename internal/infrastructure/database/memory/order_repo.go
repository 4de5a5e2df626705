package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"checkout-fraud-engine/internal/domain/order"
)

type orderKey struct {
	user       uuid.UUID
	externalID string
}

// OrderRepository implements order.Repository
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[orderKey]*order.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[orderKey]*order.Order)}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := orderKey{o.UserID, o.ExternalID}
	if _, ok := r.orders[k]; ok {
		return order.ErrDuplicateOrder
	}
	c := *o
	r.orders[k] = &c
	return nil
}

func (r *OrderRepository) GetByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderKey{userID, externalID}]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (r *OrderRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for k := range r.orders {
		if k.user == userID {
			n++
		}
	}
	return n, nil
}

func (r *OrderRepository) SumAndCountSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	var n int64
	for k, o := range r.orders {
		if k.user == userID && !o.CompletedAt.Before(since) {
			sum = sum.Add(o.Amount)
			n++
		}
	}
	return sum, n, nil
}

func (r *OrderRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*order.Order, error) {
	r.mu.RLock()
	var out []*order.Order
	for k, o := range r.orders {
		if k.user == userID {
			c := *o
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return page(out, limit, offset), nil
}
