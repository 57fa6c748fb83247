package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/apperr"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/pkg/ratelimit"
)

// RateLimit admits requests per client IP through the sliding window limiter.
// Rejected requests get a Retry-After hint in seconds.
func RateLimit(limiter *ratelimit.SlidingWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, wait := limiter.Allow(c.Context(), c.IP())
		if !allowed {
			retryAfter := int(wait.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return apperr.New(apperr.CodeRateLimited, "too many requests", fiber.StatusTooManyRequests)
		}
		return c.Next()
	}
}
