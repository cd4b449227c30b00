// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"challenge-arena/logger"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware only lets through requests carrying the shared
// Gateway token, either as "Bearer <token>" or raw.
func GatewayAuthMiddleware(expectedToken string, log logger.Logger) fiber.Handler {
	want := []byte(expectedToken)

	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			log.Warn("🚫 [GATEWAY_AUTH] no Authorization header", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		got := []byte(strings.TrimPrefix(header, "Bearer "))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			log.Warn("❌ [GATEWAY_AUTH] token rejected", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}
		return c.Next()
	}
}
