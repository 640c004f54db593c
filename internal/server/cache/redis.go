package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	resetTokenPrefix = "reset_token:"
	profilePrefix    = "user:"
)

func resetTokenKey(token string) string { return resetTokenPrefix + token }

func profileKey(userID int64) string { return profilePrefix + strconv.FormatInt(userID, 10) }

// RedisCache implements SessionCache on a shared go-redis client.
type RedisCache struct {
	client redis.Cmdable
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

// Connect parses a redis:// URL, dials and pings.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (c *RedisCache) PutResetToken(ctx context.Context, token, email string, ttl time.Duration) error {
	return c.client.Set(ctx, resetTokenKey(token), email, ttl).Err()
}

// ConsumeResetToken uses GETDEL so concurrent redemptions see the entry once.
func (c *RedisCache) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	email, err := c.client.GetDel(ctx, resetTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache error: %w", err)
	}
	return email, nil
}

func (c *RedisCache) PutProfile(ctx context.Context, user *models.User, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKey(user.ID), data, ttl).Err()
}

// Profile returns the memoized user. An undecodable entry counts as a miss.
func (c *RedisCache) Profile(ctx context.Context, userID int64) (*models.User, error) {
	data, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache error: %w", err)
	}

	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

func (c *RedisCache) InvalidateProfile(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, profileKey(userID)).Err()
}
