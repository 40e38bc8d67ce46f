package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
)

// respondError translates a service error into the stable JSON error shape.
// Server-side failures get logged with the request path; the client only ever
// sees the sanitized message.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   apperr.Code(err),
		"message": apperr.UserMessage(err),
	})
}

// requestOrigin returns the base URL checkout redirects should come back to.
// Prefers the Origin header the browser sent, falls back to the configured
// public URL.
func requestOrigin(c *fiber.Ctx, fallback string) string {
	if origin := strings.TrimSpace(c.Get(fiber.HeaderOrigin)); origin != "" {
		return origin
	}
	if fallback != "" {
		return fallback
	}
	return c.BaseURL()
}
