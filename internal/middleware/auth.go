package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/session"
)

// JWTProtected validates the access token from the Authorization header,
// falling back to the access_token cookie.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ContextKey:  session.LocalsKey,
		TokenLookup: "header:Authorization,cookie:access_token",
		AuthScheme:  "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Response{
				Status:  fiber.StatusUnauthorized,
				Code:    string(apperr.Unauthorized),
				Message: "invalid or expired token",
			})
		},
	})
}
