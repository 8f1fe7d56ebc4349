package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
)

// usageKeyTTL keeps quota counters around past the month they cover, then
// lets Redis reclaim them.
const usageKeyTTL = 40 * 24 * time.Hour

// RedisUsageStore tracks monthly feature usage in Redis. Unlike the SQLite
// store it can reserve quota atomically, so concurrent extractions cannot
// slip past the limit together.
type RedisUsageStore struct {
	client *redis.Client
}

// NewRedisUsageStore connects to Redis and verifies the connection.
func NewRedisUsageStore(addr, password string, db int) (*RedisUsageStore, error) {
	if err := validateString(addr, "addr"); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisUsageStore{client: client}, nil
}

// NewRedisUsageStoreFromClient wraps an existing client, mainly for tests.
func NewRedisUsageStoreFromClient(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

// Close releases the underlying client.
func (r *RedisUsageStore) Close() error {
	return r.client.Close()
}

func usageKey(feature, userID, monthKey string) string {
	return fmt.Sprintf("quota:%s:%s:%s", feature, userID, monthKey)
}

// GetFeatureUsage returns the month's counter, zero when the key does not
// exist yet.
func (r *RedisUsageStore) GetFeatureUsage(ctx context.Context, userID, feature, monthKey string) (*model.FeatureUsage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	usage := &model.FeatureUsage{
		UserID:   userID,
		Feature:  feature,
		MonthKey: monthKey,
	}

	count, err := r.client.Get(ctx, usageKey(feature, userID, monthKey)).Int()
	if err == redis.Nil {
		return usage, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature usage: %w", err)
	}

	usage.Count = count
	return usage, nil
}

// IncrementFeatureUsage bumps the month's counter by one, starting the
// expiry clock on first use.
func (r *RedisUsageStore) IncrementFeatureUsage(ctx context.Context, userID, feature, monthKey string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	key := usageKey(feature, userID, monthKey)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment feature usage: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, usageKeyTTL).Err(); err != nil {
			return fmt.Errorf("failed to set usage key expiry: %w", err)
		}
	}

	return nil
}

// ReserveFeatureUsage increments the counter and returns the new count. If
// the increment lands past the limit it is rolled back and the caller gets
// a quota error. INCR is atomic, so two concurrent reservations can never
// both claim the last slot.
func (r *RedisUsageStore) ReserveFeatureUsage(ctx context.Context, userID, feature, monthKey string, limit int) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	key := usageKey(feature, userID, monthKey)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve feature usage: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, usageKeyTTL).Err(); err != nil {
			return 0, fmt.Errorf("failed to set usage key expiry: %w", err)
		}
	}

	if limit > 0 && count > int64(limit) {
		if err := r.client.Decr(ctx, key).Err(); err != nil {
			return 0, fmt.Errorf("failed to roll back over-limit reservation: %w", err)
		}
		return 0, &common.QuotaExceededError{
			Feature:      feature,
			MonthKey:     monthKey,
			CurrentUsage: limit,
			Limit:        limit,
		}
	}

	return int(count), nil
}
