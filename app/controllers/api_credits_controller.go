package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

// HandleGetCredits returns the authenticated user's current credit balance.
// First contact initializes the ledger with the default allowance.
func (a *API) HandleGetCredits(c *fiber.Ctx) error {
	user := usercontext.Current(c)

	balance, err := a.ledger.GetBalance(c.Context(), user.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"credits": balance})
}
