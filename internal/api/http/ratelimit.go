package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RateLimiter counts hits on a key within a window.
type RateLimiter interface {
	AllowRate(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// LoginRateLimit caps login attempts per client IP per minute. Limiter
// failures let the request through.
func LoginRateLimit(limiter RateLimiter, perMinute int, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || perMinute <= 0 {
			return c.Next()
		}
		key := "ratelimit:login:" + c.IP()
		allowed, err := limiter.AllowRate(c.UserContext(), key, int64(perMinute), time.Minute)
		if err != nil {
			logger.Warn("login rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return apperrors.NewRateLimited("too many login attempts, try again later")
		}
		return c.Next()
	}
}
