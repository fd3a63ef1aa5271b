package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-checkin/internal/models"
)

const userCachePrefix = "auth:user:"

// UserCache keeps recently resolved users so every request does not hit the database.
type UserCache interface {
	Get(ctx context.Context, key string) (*models.User, error)
	Set(ctx context.Context, key string, user *models.User) error
}

type cachedUser struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
}

// RedisUserCache stores users as JSON with a short TTL.
type RedisUserCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration) *RedisUserCache {
	return &RedisUserCache{Client: client, TTL: ttl}
}

// Get returns nil, nil on a miss.
func (c *RedisUserCache) Get(ctx context.Context, key string) (*models.User, error) {
	raw, err := c.Client.Get(ctx, userCachePrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Redis: %w", err)
	}

	var cu cachedUser
	if err := json.Unmarshal([]byte(raw), &cu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}
	return &models.User{ID: cu.ID, DisplayName: cu.DisplayName, Email: cu.Email, Role: cu.Role}, nil
}

func (c *RedisUserCache) Set(ctx context.Context, key string, user *models.User) error {
	b, err := json.Marshal(cachedUser{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email, Role: user.Role})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := c.Client.Set(ctx, userCachePrefix+key, b, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store user in Redis: %w", err)
	}
	return nil
}
