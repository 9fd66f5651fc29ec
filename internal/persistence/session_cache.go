package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:token:"

// SessionCache caches token to user id lookups in Redis.
type SessionCache struct {
	redis *Redis
	ttl   time.Duration
}

// NewSessionCache builds a cache with the given entry lifetime.
func NewSessionCache(r *Redis, ttl time.Duration) *SessionCache {
	return &SessionCache{redis: r, ttl: ttl}
}

// Get returns the cached user id for token. A hit with an empty user id is a
// revocation tombstone.
func (c *SessionCache) Get(ctx context.Context, token string) (string, bool, error) {
	if !c.redis.Enabled() {
		return "", false, ErrRedisDisabled
	}
	userID, err := c.redis.Client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// Set stores the token binding for a freshly issued token.
func (c *SessionCache) Set(ctx context.Context, token, userID string) error {
	if !c.redis.Enabled() {
		return ErrRedisDisabled
	}
	return c.redis.Client.Set(ctx, sessionKeyPrefix+token, userID, c.ttl).Err()
}

// Fill stores the binding only if no entry exists, so a read-through never
// replaces a tombstone written by a concurrent revocation.
func (c *SessionCache) Fill(ctx context.Context, token, userID string) error {
	if !c.redis.Enabled() {
		return ErrRedisDisabled
	}
	return c.redis.Client.SetNX(ctx, sessionKeyPrefix+token, userID, c.ttl).Err()
}

// Revoke replaces the given tokens with tombstones that outlive any entry a
// concurrent read-through could still write.
func (c *SessionCache) Revoke(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	if !c.redis.Enabled() {
		return ErrRedisDisabled
	}
	pipe := c.redis.Client.TxPipeline()
	for _, token := range tokens {
		pipe.Set(ctx, sessionKeyPrefix+token, "", c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
