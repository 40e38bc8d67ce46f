package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
)

// HandleStripeWebhook verifies and reconciles a payment provider event.
// Stripe retries anything that is not acknowledged with a 2xx, so only
// errors we want redelivered for may return a non-2xx status.
func (a *API) HandleStripeWebhook(c *fiber.Ctx) error {
	if a.reconciler == nil {
		return respondError(c, fmt.Errorf("%w: payments", apperr.ErrNotConfigured))
	}

	if err := a.reconciler.Handle(c.Context(), c.Body(), c.Get("Stripe-Signature")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"received": true})
}
