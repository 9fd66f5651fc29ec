package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingLimiter struct {
	hits map[string]int64
	err  error
}

func (l *countingLimiter) AllowRate(_ context.Context, key string, limit int64, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits[key]++
	return l.hits[key] <= limit, nil
}

func newLimitedApp(limiter RateLimiter, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop(), nil)})
	app.Post("/login", LoginRateLimit(limiter, 2, logger), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func postLogin(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitBlocksAfterLimit(t *testing.T) {
	app := newLimitedApp(&countingLimiter{hits: map[string]int64{}}, zap.NewNop())

	assert.Equal(t, http.StatusOK, postLogin(t, app))
	assert.Equal(t, http.StatusOK, postLogin(t, app))
	assert.Equal(t, http.StatusTooManyRequests, postLogin(t, app))
}

func TestLoginRateLimitFailsOpen(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	app := newLimitedApp(&countingLimiter{err: errors.New("redis down")}, zap.New(core))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, postLogin(t, app))
	}
	assert.Equal(t, 5, logs.FilterMessage("login rate limiter unavailable").Len())
}
