package cmsapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit configures one fixed-window request limit per client address
type RateLimit struct {
	Max    int
	Window time.Duration
}

// Default request limits
var (
	DefaultAuthRateLimit = RateLimit{Max: 10, Window: 15 * time.Minute}
	DefaultAPIRateLimit  = RateLimit{Max: 500, Window: 15 * time.Minute}
)

// rateLimiter returns a limiter middleware keyed by client IP. store may be
// nil, in which case the limiter keeps its state in process memory.
func rateLimiter(name string, limit RateLimit, store fiber.Storage) fiber.Handler {
	return limiter.New(
		limiter.Config{
			Max:        limit.Max,
			Expiration: limit.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				return "ratelimit:" + name + ":" + c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return jsonError(c, fiber.StatusTooManyRequests, msgTooManyRequests)
			},
			Storage:           store,
			LimiterMiddleware: limiter.FixedWindow{},
		},
	)
}
