package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
)

// RateLimit allows max requests per minute per client IP, sliding window.
func RateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.Response{
				Status:  fiber.StatusTooManyRequests,
				Code:    string(apperr.TooManyRequests),
				Message: "too many requests, slow down",
			})
		},
	})
}
