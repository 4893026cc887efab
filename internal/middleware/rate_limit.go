package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/portfolio-api/internal/session"
	"github.com/noah-isme/portfolio-api/internal/utils"
)

// RateLimit throttles a route group per signed-in user, or per client IP for
// anonymous callers such as the SSO exchange.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   window,
		KeyGenerator: rateLimitKey(scope),
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return utils.FailRetryable(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}

func rateLimitKey(scope string) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if user := session.Current(c); user.Authenticated() {
			return fmt.Sprintf("%s:user:%d", scope, user.ID)
		}
		return fmt.Sprintf("%s:ip:%s", scope, c.IP())
	}
}
