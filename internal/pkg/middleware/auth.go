package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

// RequireAPIAuth ensures a resolved identity for API routes and returns
// JSON 401 instead of a redirect.
func RequireAPIAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
