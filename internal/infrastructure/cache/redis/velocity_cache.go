package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// velocityRetention bounds how much attempt history a user key keeps
const velocityRetention = 24 * time.Hour

// VelocityCache tracks checkout attempts per user in a sorted set scored by
// unix milliseconds. Members are "attemptID|amount".
type VelocityCache struct {
	client *Client
	logger *zap.Logger
}

// NewVelocityCache creates a new velocity cache
func NewVelocityCache(client *Client) *VelocityCache {
	return &VelocityCache{client: client, logger: client.logger}
}

func velocityKey(userID uuid.UUID) string {
	return fmt.Sprintf("velocity:user:%s", userID.String())
}

// Record adds a checkout attempt to the user's window
func (c *VelocityCache) Record(ctx context.Context, userID, attemptID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	key := velocityKey(userID)
	cutoff := at.Add(-velocityRetention).UnixMilli()

	_, err := c.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(at.UnixMilli()),
			Member: attemptID.String() + "|" + amount.String(),
		})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, velocityRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Window returns the count and amount sum of attempts in [now-window, now]
func (c *VelocityCache) Window(ctx context.Context, userID uuid.UUID, window time.Duration, now time.Time) (int64, decimal.Decimal, error) {
	members, err := c.client.ZRangeByScore(ctx, velocityKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(now.Add(-window).UnixMilli(), 10),
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	})
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to read velocity window: %w", err)
	}

	total := decimal.Zero
	var count int64
	for _, member := range members {
		sep := strings.LastIndexByte(member, '|')
		if sep == -1 {
			c.logger.Warn("skipping malformed velocity member", zap.String("member", member))
			continue
		}
		amount, err := decimal.NewFromString(member[sep+1:])
		if err != nil {
			c.logger.Warn("skipping malformed velocity amount", zap.String("member", member))
			continue
		}
		count++
		total = total.Add(amount)
	}
	return count, total, nil
}
