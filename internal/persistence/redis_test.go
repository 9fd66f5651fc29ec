package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestDisabledRedis(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.False(t, r.Enabled())

	allowed, err := r.AllowRate(context.Background(), "k", 1, time.Minute)
	assert.True(t, allowed)
	assert.ErrorIs(t, err, ErrRedisDisabled)
	assert.ErrorIs(t, r.Publish(context.Background(), "c", nil), ErrRedisDisabled)

	cache := NewSessionCache(r, time.Minute)
	_, _, err = cache.Get(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrRedisDisabled)
	assert.NoError(t, cache.Revoke(context.Background()))
}

func TestDisabledPostgres(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Error(t, pg.Ping(context.Background()))
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}
