package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

// RedisStandCache keeps the available stands of an event under
// "stands:<event_id>". Every stand assignment drops the key.
type RedisStandCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStandCache(client *redis.Client, ttl time.Duration) *RedisStandCache {
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &RedisStandCache{client: client, ttl: ttl}
}

func Key(eventID uuid.UUID) string {
	return fmt.Sprintf("stands:%s", eventID.String())
}

func (c *RedisStandCache) GetAvailable(ctx context.Context, eventID uuid.UUID) ([]domain.Stand, bool, error) {
	raw, err := c.client.Get(ctx, Key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("read stand cache: %w", err)
	}

	var stands []domain.Stand
	if err := json.Unmarshal(raw, &stands); err != nil {
		return nil, false, fmt.Errorf("decode stand cache: %w", err)
	}

	return stands, true, nil
}

func (c *RedisStandCache) SetAvailable(ctx context.Context, eventID uuid.UUID, stands []domain.Stand) error {
	raw, err := json.Marshal(stands)
	if err != nil {
		return fmt.Errorf("encode stand cache: %w", err)
	}

	return c.client.Set(ctx, Key(eventID), raw, c.ttl).Err()
}

func (c *RedisStandCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return c.client.Del(ctx, Key(eventID)).Err()
}
