package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// RateLimitSync throttles manual sync requests process-wide to one per
// MANUAL_SYNC_MIN_INTERVAL_SECONDS. A zero interval disables the limit.
func (m *Middleware) RateLimitSync() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.syncLimiter == nil {
			return c.Next()
		}

		reservation := m.syncLimiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			retryAfter := int(math.Ceil(delay.Seconds()))
			m.log.TraceFromContext(c.UserContext()).Function("RateLimitSync").
				Info("manual sync throttled", "retryAfterSeconds", retryAfter)

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "error",
				"message": "Sync requested too recently, try again later",
			})
		}

		return c.Next()
	}
}
