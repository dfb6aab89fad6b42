package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"vitrine/internal/auth"
)

// ClaimsKey is the fiber.Locals key holding the verified *auth.Claims.
const ClaimsKey = "claims"

// RequireAuth validates the bearer token on admin endpoints.
// Expects: Authorization: Bearer <token>
func RequireAuth(issuer *auth.Issuer, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token não fornecido",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token mal formatado",
			})
		}

		claims, err := issuer.Verify(parts[1])
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				logger.Error("Failed to verify token", slog.Any("error", err))
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token inválido ou expirado",
			})
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// Claims returns the claims RequireAuth stored on c, or nil.
func Claims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(ClaimsKey).(*auth.Claims)
	return claims
}
